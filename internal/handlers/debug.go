package handlers

import (
	"net/http"
	"os"
)

// DebugFileResponse describes where a recording lives and whether the
// process can actually read it. Useful when chasing permission problems
// on the recordings volume.
type DebugFileResponse struct {
	ID        int64  `json:"id"`
	FileName  string `json:"file_name"`
	FilePath  string `json:"file_path"`
	Processed bool   `json:"processed"`
	Exists    bool   `json:"exists"`
	Readable  bool   `json:"readable"`
	SizeDB    int64  `json:"size_db"`
	SizeDisk  int64  `json:"size_disk"`
}

// DebugFile reports the on-disk state of a catalog entry.
func (h *Handlers) DebugFile(w http.ResponseWriter, r *http.Request) {
	record, ok := h.lookupRecord(w, r)
	if !ok {
		return
	}

	response := DebugFileResponse{
		ID:        record.ID,
		FileName:  record.FileName,
		FilePath:  record.FullFilePath(),
		Processed: record.Processed,
		SizeDB:    record.FileSize,
	}

	if info, err := os.Stat(response.FilePath); err == nil {
		response.Exists = true
		response.SizeDisk = info.Size()
	}
	if response.Exists {
		if f, err := os.Open(response.FilePath); err == nil {
			response.Readable = true
			f.Close()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}
