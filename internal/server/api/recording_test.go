package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ayusman/facerecorder/internal/recording"
	"github.com/ayusman/facerecorder/internal/render"
)

func newTestController(t *testing.T) (*recording.Controller, *recording.MockFactory) {
	t.Helper()

	surface := render.NewSurface("record")
	t.Cleanup(surface.Close)

	factory := &recording.MockFactory{}
	c := recording.NewController(recording.Config{
		Source:      surface,
		NewRecorder: factory.New,
	})
	return c, factory
}

func do(h http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) statusResponse {
	t.Helper()

	var resp statusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestRecordingHandler_Status(t *testing.T) {
	c, _ := newTestController(t)
	handler := NewRecordingHandler(c)

	rec := do(handler, http.MethodGet, "/api/recording")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	resp := decodeStatus(t, rec)
	if resp.Recording || resp.State != "idle" || resp.Latest != nil {
		t.Errorf("unexpected idle status %+v", resp)
	}
}

func TestRecordingHandler_StartStop(t *testing.T) {
	c, factory := newTestController(t)
	handler := NewRecordingHandler(c)

	rec := do(handler, http.MethodPost, "/api/recording/start")
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: expected status %d, got %d", http.StatusCreated, rec.Code)
	}
	if resp := decodeStatus(t, rec); !resp.Recording || resp.State != "recording" {
		t.Errorf("start: unexpected status %+v", resp)
	}

	rec = do(handler, http.MethodPost, "/api/recording/start")
	if rec.Code != http.StatusConflict {
		t.Errorf("second start: expected status %d, got %d", http.StatusConflict, rec.Code)
	}

	factory.Last().Emit(bytes.Repeat([]byte{1}, 10))
	factory.Last().Emit(bytes.Repeat([]byte{2}, 20))

	rec = do(handler, http.MethodPost, "/api/recording/stop")
	if rec.Code != http.StatusOK {
		t.Fatalf("stop: expected status %d, got %d", http.StatusOK, rec.Code)
	}

	resp := decodeStatus(t, rec)
	if resp.Recording {
		t.Error("stop: expected recording false")
	}
	if resp.Latest == nil {
		t.Fatal("stop: expected latest recording")
	}
	if resp.Latest.Size != 30 || resp.Latest.MediaType != "video/webm" {
		t.Errorf("latest = %+v, want 30 bytes of video/webm", resp.Latest)
	}
	if resp.Latest.DownloadURL == "" {
		t.Error("latest should carry a download URL")
	}
}

func TestRecordingHandler_StopWhenIdle(t *testing.T) {
	c, _ := newTestController(t)
	handler := NewRecordingHandler(c)

	rec := do(handler, http.MethodPost, "/api/recording/stop")
	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if resp := decodeStatus(t, rec); resp.Recording {
		t.Error("expected recording false")
	}
}

func TestRecordingHandler_NoSurface(t *testing.T) {
	factory := &recording.MockFactory{}
	handler := NewRecordingHandler(recording.NewController(recording.Config{NewRecorder: factory.New}))

	rec := do(handler, http.MethodPost, "/api/recording/start")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
}

func TestRecordingHandler_Download(t *testing.T) {
	c, factory := newTestController(t)
	handler := NewRecordingHandler(c)

	t.Run("404 before any recording", func(t *testing.T) {
		rec := do(handler, http.MethodGet, "/api/recording/download")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})

	c.Start()
	factory.Last().Emit([]byte("webm-bytes"))
	c.Stop()
	blob := c.Latest()

	t.Run("serves the latest blob", func(t *testing.T) {
		rec := do(handler, http.MethodGet, "/api/recording/download")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "video/webm" {
			t.Errorf("Content-Type = %q, want video/webm", ct)
		}
		want := `attachment; filename="face-recording.webm"`
		if cd := rec.Header().Get("Content-Disposition"); cd != want {
			t.Errorf("Content-Disposition = %q, want %q", cd, want)
		}
		if rec.Body.String() != "webm-bytes" {
			t.Errorf("body = %q, want %q", rec.Body.String(), "webm-bytes")
		}
	})

	t.Run("by id", func(t *testing.T) {
		rec := do(handler, http.MethodGet, blob.URL())
		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		rec = do(handler, http.MethodGet, "/api/recording/download?id=other")
		if rec.Code != http.StatusNotFound {
			t.Errorf("unknown id: expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestRecordingHandler_Methods(t *testing.T) {
	c, _ := newTestController(t)
	handler := NewRecordingHandler(c)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodPost, "/api/recording", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/recording/start", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/recording/stop", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/recording/download", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/recording/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		rec := do(handler, tt.method, tt.path)
		if rec.Code != tt.want {
			t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.path, tt.want, rec.Code)
		}
	}
}
