package content

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-decoder/internal/logging"
	"media-decoder/internal/metrics"
)

// Default timeout for store operations
const defaultTimeout = 5 * time.Second

// Column names of the content_records table.
const (
	ColumnURI         = "uri"
	ColumnMimeType    = "mime_type"
	ColumnOrientation = "orientation"
	ColumnDataPath    = "data_path"
)

// knownColumns is the projection whitelist; anything else is never
// interpolated into SQL.
var knownColumns = map[string]bool{
	ColumnURI:         true,
	ColumnMimeType:    true,
	ColumnOrientation: true,
	ColumnDataPath:    true,
}

// Store answers attribute queries about content-record locators.
type Store interface {
	// Query returns the rows recorded for locator, projected onto columns.
	// Unknown columns and missing rows yield absent values, not errors.
	Query(ctx context.Context, locator string, columns ...string) ([]Row, error)
}

// Record is one registered content resource. Empty strings and a nil
// Orientation are stored as NULL.
type Record struct {
	URI         string `json:"uri"`
	MimeType    string `json:"mime_type,omitempty"`
	Orientation *int   `json:"orientation,omitempty"`
	DataPath    string `json:"data_path,omitempty"`
}

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Open opens (creating if needed) the store at dbPath. The parent directory
// must already exist.
func Open(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	logging.Info("Content store path: %s", dbPath)

	if err := diagnoseDirectory(dbPath); err != nil {
		logging.Warn("Content store diagnostics: %v", err)
	}

	// busy_timeout helps prevent "database is locked" errors
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open content store: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close content store after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to content store: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db, dbPath: dbPath}
	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close content store after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize content store schema: %w", err)
	}

	logging.Info("Content store initialized successfully at %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) initialize(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { recordQuery("initialize_schema", start, err) }()

	schema := `
	CREATE TABLE IF NOT EXISTS content_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uri TEXT NOT NULL UNIQUE,
		mime_type TEXT,
		orientation INTEGER,
		data_path TEXT,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_content_records_data_path ON content_records(data_path);
	`

	_, err = s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Query implements Store.
func (s *SQLiteStore) Query(ctx context.Context, locator string, columns ...string) (rows []Row, err error) {
	start := time.Now()
	defer func() { recordQuery("query", start, err) }()

	projection := make([]string, 0, len(columns))
	for _, c := range columns {
		if knownColumns[c] {
			projection = append(projection, c)
		} else {
			logging.Debug("Content store: ignoring unknown column %q", c)
		}
	}
	// always select something so the row count stays meaningful
	selected := projection
	if len(selected) == 0 {
		selected = []string{ColumnURI}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := "SELECT " + strings.Join(selected, ", ") + " FROM content_records WHERE uri = ?"
	result, err := s.db.QueryContext(ctx, query, locator)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	for result.Next() {
		values := make([]any, len(selected))
		ptrs := make([]any, len(selected))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err = result.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(projection))
		for i, name := range projection {
			if values[i] != nil {
				row[name] = values[i]
			}
		}
		rows = append(rows, row)
	}
	err = result.Err()
	return rows, err
}

// Upsert inserts or replaces the attributes of a record keyed by URI.
func (s *SQLiteStore) Upsert(ctx context.Context, rec Record) (err error) {
	start := time.Now()
	defer func() { recordQuery("upsert_record", start, err) }()

	if rec.URI == "" {
		return fmt.Errorf("content record requires a uri")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
	INSERT INTO content_records (uri, mime_type, orientation, data_path, updated_at)
	VALUES (?, ?, ?, ?, strftime('%s', 'now'))
	ON CONFLICT(uri) DO UPDATE SET
		mime_type = excluded.mime_type,
		orientation = excluded.orientation,
		data_path = excluded.data_path,
		updated_at = strftime('%s', 'now')
	`

	var orientation sql.NullInt64
	if rec.Orientation != nil {
		orientation = sql.NullInt64{Int64: int64(*rec.Orientation), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, query,
		rec.URI,
		nullString(rec.MimeType),
		orientation,
		nullString(rec.DataPath),
	)
	return err
}

// Count returns the number of registered records.
func (s *SQLiteStore) Count(ctx context.Context) (count int, err error) {
	start := time.Now()
	defer func() { recordQuery("count_records", start, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM content_records").Scan(&count)
	return count, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// recordQuery records store query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ContentQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.ContentQueryDuration.WithLabelValues(operation).Observe(duration)
}

// diagnoseDirectory checks that the database directory exists and is writable
func diagnoseDirectory(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat content store directory: %w", err)
	}
	logging.Debug("Content store directory: %s (mode: %v)", dir, dirInfo.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("content store directory not writable: %w", err)
	}
	_ = os.Remove(testFile)

	if info, err := os.Stat(dbPath); err == nil && info.Mode().Perm()&0o200 == 0 {
		logging.Warn("Content store file is read-only! Mode: %v", info.Mode())
	}
	return nil
}
