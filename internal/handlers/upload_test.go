package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/edwintenbrinke/motion-detection/internal/database"
	"github.com/edwintenbrinke/motion-detection/internal/queue"
)

func TestUploadVideo(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	body, contentType := multipartUpload(t, "clip.avi", []byte("raw-video-bytes"), nil)
	req := httptest.NewRequest("POST", "/api/video/upload", body)
	req.Header.Set("Content-Type", contentType)

	w := env.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp UploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.FileName != "clip.avi" || resp.ID == 0 {
		t.Errorf("Unexpected response: %+v", resp)
	}

	// The file is staged on disk with the size measured from disk.
	staged := filepath.Join(env.config.StagingDir, "clip.avi")
	info, err := os.Stat(staged)
	if err != nil {
		t.Fatalf("Expected staged file: %v", err)
	}

	rec, err := env.db.GetRecord(ctx, resp.ID)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if rec.Processed {
		t.Error("Fresh uploads must be unprocessed")
	}
	if rec.FileSize != info.Size() {
		t.Errorf("Expected size %d from disk, got %d", info.Size(), rec.FileSize)
	}
	if rec.Type != database.CategoryNormal {
		t.Errorf("Expected normal category without roi_triggered, got %v", rec.Type)
	}

	// Both pipeline jobs were durably enqueued before the 200 returned.
	jobs, err := env.db.ClaimPendingJobs(ctx, 10)
	if err != nil {
		t.Fatalf("ClaimPendingJobs failed: %v", err)
	}
	kinds := map[string]bool{}
	for _, job := range jobs {
		kinds[job.Kind] = true
	}
	if !kinds[queue.KindProcessFile] || !kinds[queue.KindEnforceRetention] {
		t.Errorf("Expected process and retention jobs, got %v", kinds)
	}
}

func TestUploadVideoRoiTriggered(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	tests := []struct {
		name string
		roi  string
		want database.Category
	}{
		{"Exact True marks important", "True", database.CategoryImportant},
		{"Lowercase true is not important", "true", database.CategoryNormal},
		{"False is normal", "False", database.CategoryNormal},
		{"Absent is normal", "", database.CategoryNormal},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := map[string]string{}
			if tt.roi != "" {
				fields["roi_triggered"] = tt.roi
			}
			name := "roi-" + string(rune('a'+i)) + ".avi"
			body, contentType := multipartUpload(t, name, []byte("data"), fields)
			req := httptest.NewRequest("POST", "/api/video/upload", body)
			req.Header.Set("Content-Type", contentType)

			w := env.do(req)
			if w.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", w.Code)
			}

			rec, err := env.db.GetRecordByFileName(context.Background(), name)
			if err != nil {
				t.Fatalf("GetRecordByFileName failed: %v", err)
			}
			if rec.Type != tt.want {
				t.Errorf("Expected category %v, got %v", tt.want, rec.Type)
			}
		})
	}
}

func TestUploadVideoMissingFile(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	body, contentType := multipartUpload(t, "", nil, map[string]string{"roi_triggered": "True"})
	req := httptest.NewRequest("POST", "/api/video/upload", body)
	req.Header.Set("Content-Type", contentType)

	w := env.do(req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without a file part, got %d", w.Code)
	}
}

func TestUploadVideoNotMultipart(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := httptest.NewRequest("POST", "/api/video/upload", nil)
	w := env.do(req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a non-multipart body, got %d", w.Code)
	}
}

func TestUploadVideoNameCollision(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	upload := func() *httptest.ResponseRecorder {
		body, contentType := multipartUpload(t, "clip.avi", []byte("data"), nil)
		req := httptest.NewRequest("POST", "/api/video/upload", body)
		req.Header.Set("Content-Type", contentType)
		return env.do(req)
	}

	if w := upload(); w.Code != http.StatusOK {
		t.Fatalf("First upload failed: %d", w.Code)
	}
	w := upload()
	if w.Code != http.StatusOK {
		t.Fatalf("Second upload failed: %d", w.Code)
	}

	var resp UploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.FileName != "clip-1.avi" {
		t.Errorf("Expected collision-free name clip-1.avi, got %s", resp.FileName)
	}
	if _, err := os.Stat(filepath.Join(env.config.StagingDir, "clip-1.avi")); err != nil {
		t.Errorf("Expected clip-1.avi on disk: %v", err)
	}
}

func TestUploadVideoStripsPathFromClientName(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	body, contentType := multipartUpload(t, "../../../etc/passwd", []byte("data"), nil)
	req := httptest.NewRequest("POST", "/api/video/upload", body)
	req.Header.Set("Content-Type", contentType)

	w := env.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp UploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.FileName != "passwd" {
		t.Errorf("Expected path components stripped, got %s", resp.FileName)
	}
	if _, err := os.Stat(filepath.Join(env.config.StagingDir, "passwd")); err != nil {
		t.Errorf("Expected file inside the staging dir: %v", err)
	}
}
