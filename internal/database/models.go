package database

import (
	"fmt"
	"path/filepath"
	"time"
)

// Category classifies a recording for retention purposes. Clips whose
// capture was triggered inside the configured region of interest are
// "important" and tracked under a separate retention budget.
type Category int

const (
	CategoryNormal    Category = 0
	CategoryImportant Category = 1
)

// ParseCategory converts the wire representation (the integer used by the
// camera and the SPA) into a Category.
func ParseCategory(v int) (Category, error) {
	switch Category(v) {
	case CategoryNormal, CategoryImportant:
		return Category(v), nil
	default:
		return CategoryNormal, fmt.Errorf("unknown category %d", v)
	}
}

// String returns a human-readable label, used for logs and metric labels.
func (c Category) String() string {
	switch c {
	case CategoryImportant:
		return "important"
	default:
		return "normal"
	}
}

// FileRecord is the catalog entry describing one recording. A record is
// created unprocessed at upload time; the transcoder rewrites its on-disk
// identity exactly once and flips Processed. Consumers only ever see
// processed records.
type FileRecord struct {
	ID            int64     `json:"id"`
	FileName      string    `json:"file_name"`
	FilePath      string    `json:"file_path"`
	FileSize      int64     `json:"file_size"`
	Type          Category  `json:"type"`
	Processed     bool      `json:"processed"`
	VideoDuration int       `json:"video_duration"`
	VideoWidth    int       `json:"video_width"`
	VideoHeight   int       `json:"video_height"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FullFilePath returns the absolute location of the underlying artifact.
func (f *FileRecord) FullFilePath() string {
	return filepath.Join(f.FilePath, f.FileName)
}

// TableListing is one page of the recordings table, newest first.
type TableListing struct {
	Items        []FileRecord `json:"items"`
	TotalItems   int          `json:"totalItems"`
	Page         int          `json:"page"`
	ItemsPerPage int          `json:"itemsPerPage"`
	TotalPages   int          `json:"totalPages"`
}

// HourCount is one bucket of the calendar view: how many processed
// recordings were captured in a given hour of the requested day.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}
