package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"

	"github.com/edwintenbrinke/motion-detection/internal/database"
	"github.com/edwintenbrinke/motion-detection/internal/startup"
)

type testEnv struct {
	db       *database.Database
	handlers *Handlers
	router   *mux.Router
	config   *startup.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	staging := filepath.Join(dir, "staging")
	recordings := filepath.Join(dir, "recordings")
	posters := filepath.Join(dir, "posters")
	for _, d := range []string{staging, recordings, posters} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("Failed to create %s: %v", d, err)
		}
	}

	db, err := database.New(context.Background(), filepath.Join(dir, "motion.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	config := &startup.Config{
		StagingDir:     staging,
		RecordingsDir:  recordings,
		PosterDir:      posters,
		MaxDiskUsageGB: 1,
		PostersEnabled: false,
	}

	h := New(db, config)

	r := mux.NewRouter()
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.Livez).Methods("GET")
	r.HandleFunc("/readyz", h.Readyz).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/video/upload", h.UploadVideo).Methods("POST")
	api.HandleFunc("/video/stream/{filename}", h.StreamVideo).Methods("GET")
	api.HandleFunc("/video/thumbnail/{filename}", h.GetThumbnail).Methods("GET")
	api.HandleFunc("/video/debug/{filename}", h.DebugFile).Methods("GET")
	api.HandleFunc("/motion-detected-file/table", h.GetTable).Methods("GET")
	api.HandleFunc("/motion-detected-file/calendar", h.GetCalendar).Methods("GET")
	api.HandleFunc("/motion-detected-file/hour", h.GetHour).Methods("GET")

	return &testEnv{db: db, handlers: h, router: r, config: config}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// addProcessed registers a processed recording backed by a real file in
// the recordings directory.
func (e *testEnv) addProcessed(t *testing.T, name string, content []byte) *database.FileRecord {
	t.Helper()
	ctx := context.Background()

	path := filepath.Join(e.config.RecordingsDir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("Failed to write recording: %v", err)
	}
	rec, err := e.db.CreateRecord(ctx, name, e.config.RecordingsDir, int64(len(content)), database.CategoryNormal)
	if err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}
	if err := e.db.MarkProcessed(ctx, rec.ID, name, e.config.RecordingsDir, int64(len(content)), 1920, 1080, 60); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}
	return rec
}

// multipartUpload builds a POST body with the given file and extra form
// fields, mirroring what the capture device sends.
func multipartUpload(t *testing.T, fileName string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("Failed to write form field: %v", err)
		}
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		if _, err := io.Copy(part, bytes.NewReader(content)); err != nil {
			t.Fatalf("Failed to write file content: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}
	return &body, writer.FormDataContentType()
}
