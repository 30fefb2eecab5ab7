package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/edwintenbrinke/motion-detection/internal/database"
	"github.com/edwintenbrinke/motion-detection/internal/logging"
	"github.com/edwintenbrinke/motion-detection/internal/metrics"
	"github.com/edwintenbrinke/motion-detection/internal/streaming"
)

// StreamVideo serves a processed recording with HTTP byte-range
// support. Requests without a Range header get the whole file with a
// 200; valid ranges get a 206 with the requested slice; ranges that
// fall outside the file get a 416.
func (h *Handlers) StreamVideo(w http.ResponseWriter, r *http.Request) {
	record, ok := h.lookupRecord(w, r)
	if !ok {
		metrics.StreamRequestsTotal.WithLabelValues("not_found").Inc()
		return
	}

	fullPath := record.FullFilePath()
	info, err := os.Stat(fullPath)
	if err != nil {
		logging.Warn("Stream: catalog entry %d has no file at %s", record.ID, fullPath)
		metrics.StreamRequestsTotal.WithLabelValues("not_found").Inc()
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	size := info.Size()

	byteRange, err := streaming.ParseRange(r.Header.Get("Range"), size)
	if err != nil {
		metrics.StreamRequestsTotal.WithLabelValues("unsatisfiable").Inc()
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Requested range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return
	}

	file, err := os.Open(fullPath)
	if err != nil {
		logging.Error("Stream: failed to open %s: %v", fullPath, err)
		metrics.StreamRequestsTotal.WithLabelValues("error").Inc()
		http.Error(w, "Failed to open file", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", record.FileName))

	start, length := int64(0), size
	if byteRange != nil {
		start, length = byteRange.Start, byteRange.Length()
		w.Header().Set("Content-Range", byteRange.ContentRange(size))
		w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
		w.WriteHeader(http.StatusPartialContent)
		metrics.StreamRequestsTotal.WithLabelValues("partial").Inc()
	} else {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		metrics.StreamRequestsTotal.WithLabelValues("full").Inc()
	}

	written, err := streaming.CopyRange(w, file, start, length, streaming.DefaultChunkSize)
	metrics.StreamBytesTotal.Add(float64(written))
	if err != nil {
		// Client disconnects are routine for video playback.
		logging.Debug("Stream: copy ended early for %s after %d bytes: %v", record.FileName, written, err)
	}
}

// lookupRecord resolves the {filename} route variable to a catalog
// record, writing the 4xx response itself when the lookup fails.
func (h *Handlers) lookupRecord(w http.ResponseWriter, r *http.Request) (*database.FileRecord, bool) {
	fileName := mux.Vars(r)["filename"]
	if fileName == "" || fileName != filepath.Base(fileName) {
		http.Error(w, "Invalid file name", http.StatusBadRequest)
		return nil, false
	}

	record, err := h.db.GetRecordByFileName(r.Context(), fileName)
	if err != nil {
		if errors.Is(err, database.ErrRecordNotFound) {
			http.Error(w, "File not found", http.StatusNotFound)
		} else {
			logging.Error("Stream: lookup failed for %s: %v", fileName, err)
			http.Error(w, "Lookup failed", http.StatusInternalServerError)
		}
		return nil, false
	}
	return record, true
}
