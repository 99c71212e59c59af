package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"media-decoder/internal/decode"
	"media-decoder/internal/logging"
	"media-decoder/internal/source"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const defaultJPEGQuality = 85

// decodeParams are the query parameters of GET /api/decode.
type decodeParams struct {
	req     decode.Request
	quality int
}

func parseDecodeParams(r *http.Request) (decodeParams, error) {
	q := r.URL.Query()

	p := decodeParams{
		req: decode.Request{
			Locator:             q.Get("uri"),
			ConsiderOrientation: true,
			ImageKey:            q.Get("key"),
		},
		quality: defaultJPEGQuality,
	}

	if p.req.Locator == "" {
		return p, errors.New("uri is required")
	}

	var err error
	if p.req.Target.Width, err = parseNonNegative(q.Get("w")); err != nil {
		return p, fmt.Errorf("invalid w: %w", err)
	}
	if p.req.Target.Height, err = parseNonNegative(q.Get("h")); err != nil {
		return p, fmt.Errorf("invalid h: %w", err)
	}

	if v := q.Get("orientation"); v != "" {
		consider, err := strconv.ParseBool(v)
		if err != nil {
			return p, fmt.Errorf("invalid orientation: %w", err)
		}
		p.req.ConsiderOrientation = consider
	}

	if v := q.Get("quality"); v != "" {
		quality, err := strconv.Atoi(v)
		if err != nil || quality < 1 || quality > 100 {
			return p, errors.New("quality must be between 1 and 100")
		}
		p.quality = quality
	}

	if p.req.ImageKey == "" {
		p.req.ImageKey = uuid.NewString()
	}

	return p, nil
}

func parseNonNegative(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("must not be negative")
	}
	return n, nil
}

// DecodeImage decodes the locator in ?uri= and writes the raster as JPEG.
func (h *Handlers) DecodeImage(w http.ResponseWriter, r *http.Request) {
	params, err := parseDecodeParams(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.decoder.Decode(r.Context(), params.req)
	if err != nil {
		w.Header().Set("X-Image-Key", params.req.ImageKey)
		writeJSONError(w, err.Error(), statusForDecodeError(err))
		return
	}

	path := "image"
	if result.Motion {
		path = "motion"
		w.Header().Set("X-Motion-Tier", result.Tier.String())
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("X-Image-Key", params.req.ImageKey)
	w.Header().Set("X-Decode-Path", path)
	w.Header().Set("X-Image-Rotation", strconv.Itoa(result.Info.Orientation.Rotation))

	if err := imaging.Encode(w, result.Image, imaging.JPEG, imaging.JPEGQuality(params.quality)); err != nil {
		logging.Error("Decode: failed to write JPEG for %s: %v", params.req.Locator, err)
	}
}

func statusForDecodeError(err error) int {
	switch {
	case errors.Is(err, source.ErrUnsupportedScheme):
		return http.StatusBadRequest
	case errors.Is(err, os.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, os.ErrNotExist), errors.Is(err, source.ErrNoDataPath):
		return http.StatusNotFound
	case errors.Is(err, decode.ErrDecodeBounds):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, decode.ErrSourceTooLarge):
		return http.StatusUnprocessableEntity
	}

	if kind, ok := decode.KindOf(err); ok && kind == decode.KindExtractionExhausted {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
