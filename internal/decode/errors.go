package decode

import (
	"errors"
	"fmt"
)

// Kind classifies decode faults for logs and metrics.
type Kind int

const (
	// KindClassificationProbeFailed means the type probe failed; the resource
	// is treated as a still image.
	KindClassificationProbeFailed Kind = iota + 1
	// KindMetadataQueryFailed means orientation metadata could not be read;
	// the default orientation is used.
	KindMetadataQueryFailed
	// KindExtractionExhausted means every motion thumbnail tier came back empty.
	KindExtractionExhausted
	// KindDecodeBoundsFailed means the base decoder could not read the bounds.
	KindDecodeBoundsFailed
	// KindDecodeFailed covers stream acquisition and pixel decode failures.
	KindDecodeFailed
)

// String returns the snake_case label used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindClassificationProbeFailed:
		return "classification_probe_failed"
	case KindMetadataQueryFailed:
		return "metadata_query_failed"
	case KindExtractionExhausted:
		return "extraction_exhausted"
	case KindDecodeBoundsFailed:
		return "decode_bounds_failed"
	case KindDecodeFailed:
		return "decode_failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

var (
	// ErrCannotDecode is returned when no raster could be produced.
	ErrCannotDecode = errors.New("cannot decode image")
	// ErrDecodeBounds is returned when image bounds could not be read.
	ErrDecodeBounds = errors.New("cannot decode image bounds")
	// ErrSourceTooLarge is returned when a source would be decoded in full
	// beyond the decoder's source pixel limit.
	ErrSourceTooLarge = errors.New("source image too large")
)

// Error is a decode failure surfaced to the caller.
type Error struct {
	Kind    Kind
	Key     string
	Locator string
	Err     error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("decode %s [%s]: %s: %v", e.Locator, e.Key, e.Kind, e.Err)
	}
	return fmt.Sprintf("decode %s: %s: %v", e.Locator, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with a kind and request identity.
func NewError(kind Kind, req Request, err error) *Error {
	return &Error{Kind: kind, Key: req.ImageKey, Locator: req.Locator, Err: err}
}

// KindOf extracts the Kind from an error chain.
func KindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}
