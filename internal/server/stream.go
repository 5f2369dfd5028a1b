package server

import (
	"fmt"
	"net/http"

	"github.com/ayusman/facerecorder/internal/render"
)

// StreamHandler serves the display surface as MJPEG.
type StreamHandler struct {
	surface *render.Surface
}

// NewStreamHandler creates a new StreamHandler for surface.
func NewStreamHandler(surface *render.Surface) *StreamHandler {
	return &StreamHandler{surface: surface}
}

// ServeHTTP streams every paint of the surface until the client leaves or
// the surface is closed.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stream := h.surface.CaptureStream()
	defer stream.Close()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Show the last painted frame right away instead of waiting for a tick.
	if data, err := h.surface.JPEG(); err == nil && data != nil {
		if err := writePart(w, data); err != nil {
			return
		}
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-stream.Frames():
			if !ok {
				return
			}
			if err := writePart(w, data); err != nil {
				return
			}
		}
	}
}

func writePart(w http.ResponseWriter, data []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(data)); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
		return err
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
