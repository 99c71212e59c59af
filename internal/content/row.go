package content

import (
	"context"
	"strconv"
)

// Row is one result row keyed by column name. Absent keys are NULL or
// unknown columns.
type Row map[string]any

// String returns column as text.
func (r Row) String(column string) (string, bool) {
	switch v := r[column].(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}

// Int returns column as an integer.
func (r Row) Int(column string) (int, bool) {
	switch v := r[column].(type) {
	case int64:
		return int(v), true
	case int:
		return v, true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	case []byte:
		n, err := strconv.Atoi(string(v))
		return n, err == nil
	default:
		return 0, false
	}
}

// First returns the first row, or nil.
func First(rows []Row) Row {
	if len(rows) == 0 {
		return nil
	}
	return rows[0]
}

// DataPath resolves the backing file path of a content-record locator from
// the data_path column of its first row.
func DataPath(ctx context.Context, store Store, locator string) (string, bool, error) {
	rows, err := store.Query(ctx, locator, ColumnDataPath)
	if err != nil {
		return "", false, err
	}
	path, ok := First(rows).String(ColumnDataPath)
	if !ok || path == "" {
		return "", false, nil
	}
	return path, true, nil
}

// MimeType returns the recorded MIME type of a content-record locator.
func MimeType(ctx context.Context, store Store, locator string) (string, bool, error) {
	rows, err := store.Query(ctx, locator, ColumnMimeType)
	if err != nil {
		return "", false, err
	}
	mime, ok := First(rows).String(ColumnMimeType)
	return mime, ok, nil
}

// Orientation returns the recorded orientation column of a content-record
// locator, unnormalized.
func Orientation(ctx context.Context, store Store, locator string) (int, bool, error) {
	rows, err := store.Query(ctx, locator, ColumnOrientation)
	if err != nil {
		return 0, false, err
	}
	v, ok := First(rows).Int(ColumnOrientation)
	return v, ok, nil
}
