package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/edwintenbrinke/motion-detection/internal/database"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func newTestDB(t *testing.T) *database.Database {
	t.Helper()

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "motion.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDeviceAuthNoTokenConfigured(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	handler := DeviceAuth(db)(okHandler())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/api/video/upload", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected pass-through before provisioning, got %d", w.Code)
	}
}

func TestDeviceAuth(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	if err := db.SetDeviceToken(context.Background(), "camera-secret"); err != nil {
		t.Fatalf("SetDeviceToken failed: %v", err)
	}

	handler := DeviceAuth(db)(okHandler())

	tests := []struct {
		name     string
		header   string
		value    string
		wantCode int
	}{
		{"Valid bearer token", "Authorization", "Bearer camera-secret", http.StatusOK},
		{"Valid device header", "X-Device-Token", "camera-secret", http.StatusOK},
		{"Wrong token", "Authorization", "Bearer wrong", http.StatusForbidden},
		{"Missing token", "", "", http.StatusUnauthorized},
		{"Non bearer scheme", "Authorization", "Basic xyz", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/video/upload", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("Expected %d, got %d", tt.wantCode, w.Code)
			}
		})
	}
}

func TestLoggerSkipsHealthChecks(t *testing.T) {
	t.Parallel()

	config := DefaultLoggingConfig()
	if shouldSkip("/health", config) != true {
		t.Error("Expected /health to be skipped by default")
	}
	if shouldSkip("/api/video/upload", config) != false {
		t.Error("Expected API paths to be logged")
	}

	config.LogHealthChecks = true
	if shouldSkip("/health", config) {
		t.Error("Expected /health to be logged when enabled")
	}

	config.SkipPaths = []string{"/api/video/stream"}
	if !shouldSkip("/api/video/stream/clip.mp4", config) {
		t.Error("Expected configured prefix to be skipped")
	}
}

func TestSanitizeLogField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Plain string", "GET", "GET"},
		{"Newline replaced", "a\nb", "a b"},
		{"Carriage return replaced", "a\rb", "a b"},
		{"Null stripped", "a\x00b", "ab"},
		{"Escape stripped", "a\x1b[31mb", "a[31mb"},
		{"Tab kept", "a\tb", "a\tb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeLogField(tt.in); got != tt.want {
				t.Errorf("sanitizeLogField(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestGetClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"X-Forwarded-For single", map[string]string{"X-Forwarded-For": "10.0.0.1"}, "192.168.1.1:1234", "10.0.0.1"},
		{"X-Forwarded-For chain", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "192.168.1.1:1234", "10.0.0.1"},
		{"X-Real-IP", map[string]string{"X-Real-IP": "10.0.0.3"}, "192.168.1.1:1234", "10.0.0.3"},
		{"Remote address", nil, "192.168.1.1:1234", "192.168.1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"/api/video/stream/clip.mp4", "/api/video/stream/{file}"},
		{"/api/video/upload", "/api/video/upload"},
		{"/health", "/health"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.in); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResponseWriterCapturesStatus(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	rw.WriteHeader(http.StatusTeapot)
	rw.WriteHeader(http.StatusOK) // second call must be ignored
	if _, err := rw.Write([]byte("body")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if rw.statusCode != http.StatusTeapot {
		t.Errorf("Expected 418, got %d", rw.statusCode)
	}
	if rw.bytesWritten != 4 {
		t.Errorf("Expected 4 bytes, got %d", rw.bytesWritten)
	}
}
