package handlers

import (
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/edwintenbrinke/motion-detection/internal/database"
	"github.com/edwintenbrinke/motion-detection/internal/logging"
	"github.com/edwintenbrinke/motion-detection/internal/metrics"
	"github.com/edwintenbrinke/motion-detection/internal/namer"
	"github.com/edwintenbrinke/motion-detection/internal/queue"
)

// maxUploadMemory bounds how much of a multipart body is buffered in
// memory before spilling to temp files.
const maxUploadMemory = 32 << 20

// UploadResponse is returned to the capture device after a successful
// intake.
type UploadResponse struct {
	Message  string `json:"message"`
	FileName string `json:"file_name"`
	ID       int64  `json:"id"`
}

// UploadVideo accepts a multipart recording from the capture device,
// stages it on disk, registers a catalog row and enqueues the
// processing and retention jobs. The device treats anything but 200 as
// a retryable failure, so the handler only commits the record after the
// file is safely on disk.
func (h *Handlers) UploadVideo(w http.ResponseWriter, r *http.Request) {
	category := database.CategoryNormal
	if r.FormValue("roi_triggered") == "True" {
		category = database.CategoryImportant
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		metrics.UploadsTotal.WithLabelValues("rejected", category.String()).Inc()
		writeJSONError(w, "No file uploaded", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("rejected", category.String()).Inc()
		writeJSONError(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	fileName := namer.UniqueName(h.config.StagingDir, filepath.Base(header.Filename))
	stagedPath := filepath.Join(h.config.StagingDir, fileName)

	size, err := saveUpload(file, stagedPath)
	if err != nil {
		logging.Error("Upload: failed to stage %s: %v", fileName, err)
		metrics.UploadsTotal.WithLabelValues("error", category.String()).Inc()
		writeJSONError(w, "Failed to move the file", http.StatusInternalServerError)
		return
	}

	record, err := h.db.CreateRecord(r.Context(), fileName, h.config.StagingDir, size, category)
	if err != nil {
		logging.Error("Upload: failed to register %s: %v", fileName, err)
		metrics.UploadsTotal.WithLabelValues("error", category.String()).Inc()
		if removeErr := os.Remove(stagedPath); removeErr != nil {
			logging.Warn("Upload: could not clean up %s: %v", stagedPath, removeErr)
		}
		writeJSONError(w, "Failed to register the file", http.StatusInternalServerError)
		return
	}

	if err := queue.EnqueueProcessFile(r.Context(), h.db, record.ID); err != nil {
		logging.Error("Upload: failed to enqueue processing for %d: %v", record.ID, err)
		metrics.UploadsTotal.WithLabelValues("error", category.String()).Inc()
		writeJSONError(w, "Failed to queue the file", http.StatusInternalServerError)
		return
	}
	if err := queue.EnqueueRetention(r.Context(), h.db, h.config.RetentionCeilingBytes(), category); err != nil {
		// Processing is already queued; retention will run again on the
		// next upload, so do not fail the intake.
		logging.Warn("Upload: failed to enqueue retention pass: %v", err)
	}

	metrics.UploadsTotal.WithLabelValues("accepted", category.String()).Inc()
	metrics.UploadBytesTotal.Add(float64(size))
	logging.Info("Upload: staged %s (%d bytes, %s)", fileName, size, category)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, UploadResponse{
		Message:  "File uploaded successfully",
		FileName: fileName,
		ID:       record.ID,
	})
}

// saveUpload copies the multipart part to path and reports the size
// actually written to disk.
func saveUpload(src io.Reader, path string) (int64, error) {
	dst, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	size, err := io.Copy(dst, src)
	if err != nil {
		dst.Close()
		os.Remove(path)
		return 0, err
	}

	if err := dst.Close(); err != nil {
		os.Remove(path)
		return 0, err
	}
	return size, nil
}
