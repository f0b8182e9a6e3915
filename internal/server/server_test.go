package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/arcam/internal/calib"
)

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		contentType := rec.Header().Get("Content-Type")
		if contentType != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", contentType)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}

		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		methods := []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch}

		for _, method := range methods {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_HealthReportsTracking(t *testing.T) {
	feed := NewFeed(time.Millisecond)
	s := New(Config{Feed: feed})
	defer s.Close()

	feed.PublishJPEG([]byte{0xff, 0xd8}, PoseUpdate{Frame: 42, Found: true})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var response struct {
		Frame    int  `json:"frame"`
		Tracking bool `json:"tracking"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Frame != 42 || !response.Tracking {
		t.Errorf("unexpected health %+v", response)
	}
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{})

	for _, path := range []string{"/api/nonexistent", "/api/runs", "/api/stream", "/api/pose"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusNotFound, rec.Code)
		}
	}
}

func TestServer_StaticFiles(t *testing.T) {
	tmpDir := t.TempDir()

	testContent := "<html><body>Hello, World!</body></html>"
	if err := os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte(testContent), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	s := New(Config{StaticDir: tmpDir})

	t.Run("serves index.html at root path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		if rec.Body.String() != testContent {
			t.Errorf("expected body %q, got %q", testContent, rec.Body.String())
		}
	})

	t.Run("returns 404 for non-existent static files", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/nonexistent.html", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestFeed(t *testing.T) {
	feed := NewFeed(time.Hour)

	if _, seq := feed.Frame(); seq != 0 {
		t.Errorf("new feed seq = %d, want 0", seq)
	}
	if !feed.Due(time.Now()) {
		t.Error("new feed should be due")
	}

	update := PoseUpdate{Frame: 3, Found: true, Corners: []calib.Point2{{X: 1, Y: 2}}}
	feed.PublishJPEG([]byte("jpeg"), update)

	if feed.Due(time.Now()) {
		t.Error("feed should not be due right after a publish")
	}

	jpeg, seq := feed.Frame()
	if string(jpeg) != "jpeg" || seq != 1 {
		t.Errorf("Frame() = %q, %d", jpeg, seq)
	}

	got, seq := feed.Pose()
	if seq != 1 || got.Frame != 3 || !got.Found || len(got.Corners) != 1 {
		t.Errorf("Pose() = %+v, %d", got, seq)
	}
	if got.Timestamp == 0 {
		t.Error("PublishJPEG() should stamp the update")
	}
}

func TestFeed_DefaultInterval(t *testing.T) {
	if got := NewFeed(0).Interval(); got != DefaultFeedInterval {
		t.Errorf("Interval() = %v, want %v", got, DefaultFeedInterval)
	}
}

func TestStreamHandler(t *testing.T) {
	feed := NewFeed(time.Millisecond)
	feed.PublishJPEG([]byte("JPEGDATA"), PoseUpdate{Frame: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	NewStreamHandler(feed).ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "multipart/x-mixed-replace; boundary=frame" {
		t.Errorf("unexpected Content-Type %q", ct)
	}

	body := rec.Body.String()
	if strings.Count(body, "--frame\r\n") != 1 {
		t.Errorf("expected exactly one part for one published frame, got %q", body)
	}
	if !strings.Contains(body, "Content-Length: 8\r\n\r\nJPEGDATA\r\n") {
		t.Errorf("unexpected part %q", body)
	}
}

func TestStreamHandler_MethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/stream", nil)
	rec := httptest.NewRecorder()
	NewStreamHandler(NewFeed(0)).ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestNew(t *testing.T) {
	t.Run("creates server with config", func(t *testing.T) {
		cfg := Config{StaticDir: "/some/path"}
		s := New(cfg)

		if s == nil {
			t.Fatal("expected non-nil server")
		}

		if s.config.StaticDir != cfg.StaticDir {
			t.Errorf("expected StaticDir %s, got %s", cfg.StaticDir, s.config.StaticDir)
		}
	})

	t.Run("server implements http.Handler", func(t *testing.T) {
		s := New(Config{})
		var _ http.Handler = s
	})

	t.Run("close without listening", func(t *testing.T) {
		if err := New(Config{Feed: NewFeed(0)}).Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
}
