// Package source acquires raw byte streams for locators backed by local
// files: file:// paths directly and content:// records through the data
// path recorded in the content store. Paths outside the configured media
// roots are refused with an error wrapping os.ErrPermission.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"media-decoder/internal/content"
	"media-decoder/internal/filesystem"
	"media-decoder/internal/locator"
)

var (
	// ErrUnsupportedScheme is returned for locators with no local backing.
	ErrUnsupportedScheme = errors.New("unsupported locator scheme")
	// ErrNoDataPath is returned when a content record has no backing file.
	ErrNoDataPath = errors.New("content record has no data path")
	// ErrOutsideRoots is returned for paths outside every media root.
	ErrOutsideRoots = fmt.Errorf("%w: path outside media roots", os.ErrPermission)
)

// Roots confines local paths to a set of directories. An empty Roots allows
// every path.
type Roots []string

// NewRoots returns the absolute, symlink-resolved form of dirs. Blank
// entries are skipped.
func NewRoots(dirs ...string) Roots {
	var roots Roots
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		roots = append(roots, realPath(abs))
	}
	return roots
}

// Check returns path when it lies inside one of the roots after resolving
// it to an absolute path and following symlinks, and ErrOutsideRoots
// otherwise.
func (r Roots) Check(path string) (string, error) {
	if len(r) == 0 {
		return path, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	abs = realPath(abs)

	for _, root := range r {
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrOutsideRoots, path)
}

// realPath follows symlinks of an existing path and leaves others as is.
func realPath(abs string) string {
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// Opener opens the byte stream of a locator.
type Opener interface {
	Open(ctx context.Context, loc string) (io.ReadSeekCloser, error)
}

// LocalOpener opens file:// and content:// locators from disk, retrying
// stale NFS handles.
type LocalOpener struct {
	store content.Store
	roots Roots
	retry filesystem.RetryConfig
}

// NewLocalOpener creates an opener confined to roots. store may be nil, in
// which case content locators cannot be opened.
func NewLocalOpener(store content.Store, roots Roots) *LocalOpener {
	return &LocalOpener{store: store, roots: roots, retry: filesystem.DefaultRetryConfig()}
}

// Open implements Opener.
func (o *LocalOpener) Open(ctx context.Context, loc string) (io.ReadSeekCloser, error) {
	path, err := o.ResolvePath(ctx, loc)
	if err != nil {
		return nil, err
	}

	f, err := filesystem.OpenWithRetry(ctx, path, o.retry)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", loc, err)
	}
	return f, nil
}

// ResolvePath returns the local file backing loc, refusing files outside the
// opener's roots.
func (o *LocalOpener) ResolvePath(ctx context.Context, loc string) (string, error) {
	path, err := ResolvePath(ctx, o.store, loc)
	if err != nil {
		return "", err
	}
	return o.roots.Check(path)
}

// ResolvePath returns the local file backing loc: the path of a file://
// locator, or the data_path column of a content:// record.
func ResolvePath(ctx context.Context, store content.Store, loc string) (string, error) {
	switch locator.Of(loc).Kind() {
	case locator.KindFile:
		path, ok := locator.FilePath(loc)
		if !ok {
			return "", fmt.Errorf("%w: empty file path in %q", ErrUnsupportedScheme, loc)
		}
		return path, nil
	case locator.KindContent:
		if store == nil {
			return "", fmt.Errorf("%w: no content store for %q", ErrUnsupportedScheme, loc)
		}
		path, ok, err := content.DataPath(ctx, store, loc)
		if err != nil {
			return "", fmt.Errorf("query data path for %s: %w", loc, err)
		}
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrNoDataPath, loc)
		}
		return path, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, loc)
	}
}
