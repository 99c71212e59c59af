package handlers

import (
	"encoding/json"
	"net/http"

	"media-decoder/internal/content"
	"media-decoder/internal/locator"
	"media-decoder/internal/logging"
)

// maxRecordBody bounds the JSON body of POST /api/content.
const maxRecordBody = 64 << 10

// PutContent registers or replaces a content record.
func (h *Handlers) PutContent(w http.ResponseWriter, r *http.Request) {
	var rec content.Record
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecordBody)).Decode(&rec); err != nil {
		writeJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	if locator.Of(rec.URI) != locator.SchemeContent {
		writeJSONError(w, "uri must be a content:// locator", http.StatusBadRequest)
		return
	}

	if err := h.records.Upsert(r.Context(), rec); err != nil {
		logging.Error("PutContent: failed to store %s: %v", rec.URI, err)
		writeJSONError(w, "failed to store record", http.StatusInternalServerError)
		return
	}

	logging.Debug("PutContent: stored %s (mime=%q data=%q)", rec.URI, rec.MimeType, rec.DataPath)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, rec)
}
