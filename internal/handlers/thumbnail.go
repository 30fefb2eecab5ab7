package handlers

import (
	"net/http"

	"github.com/edwintenbrinke/motion-detection/internal/logging"
)

// GetThumbnail serves a cached poster frame for a processed recording.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	if !h.posterGen.IsEnabled() {
		writeJSONError(w, "Posters are not available", http.StatusServiceUnavailable)
		return
	}

	record, ok := h.lookupRecord(w, r)
	if !ok {
		return
	}

	poster, err := h.posterGen.GetPoster(record.FullFilePath())
	if err != nil {
		logging.Warn("Thumbnail: generation failed for %s: %v", record.FileName, err)
		writeJSONError(w, "Failed to generate poster", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := w.Write(poster); err != nil {
		logging.Debug("Thumbnail: write failed for %s: %v", record.FileName, err)
	}
}
