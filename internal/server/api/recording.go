package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/facerecorder/internal/recording"
)

// RecordingHandler exposes the recording controller:
//
//	GET  /api/recording           status
//	POST /api/recording/start     start a session
//	POST /api/recording/stop      stop the session, no-op when idle
//	GET  /api/recording/download  the latest finished recording
type RecordingHandler struct {
	controller *recording.Controller
}

// NewRecordingHandler creates a new RecordingHandler for controller.
func NewRecordingHandler(c *recording.Controller) *RecordingHandler {
	return &RecordingHandler{controller: c}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *RecordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/recording")
	path = strings.Trim(path, "/")

	switch path {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, h.status())
	case "start":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.start(w, r)
	case "stop":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.stop(w, r)
	case "download":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.download(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type blobResponse struct {
	ID          string `json:"id"`
	MediaType   string `json:"media_type"`
	Size        int    `json:"size"`
	Fragments   int    `json:"fragments"`
	StartedAt   string `json:"started_at"`
	StoppedAt   string `json:"stopped_at"`
	DownloadURL string `json:"download_url"`
}

type statusResponse struct {
	Recording bool          `json:"recording"`
	State     string        `json:"state"`
	Latest    *blobResponse `json:"latest,omitempty"`
}

func (h *RecordingHandler) status() statusResponse {
	resp := statusResponse{
		State: h.controller.State().String(),
	}
	resp.Recording = resp.State == recording.StateRecording.String()

	if b := h.controller.Latest(); b != nil {
		resp.Latest = &blobResponse{
			ID:          b.ID,
			MediaType:   b.MediaType,
			Size:        b.Size(),
			Fragments:   b.Fragments,
			StartedAt:   formatTime(b.StartedAt),
			StoppedAt:   formatTime(b.StoppedAt),
			DownloadURL: b.URL(),
		}
	}
	return resp
}

// start handles POST /api/recording/start.
func (h *RecordingHandler) start(w http.ResponseWriter, r *http.Request) {
	err := h.controller.Start()
	switch {
	case errors.Is(err, recording.ErrAlreadyRecording):
		writeError(w, http.StatusConflict, "Already recording")
		return
	case errors.Is(err, recording.ErrNoSurface):
		writeError(w, http.StatusServiceUnavailable, "No surface to record")
		return
	case err != nil:
		log.Printf("Failed to start recording: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to start recording")
		return
	}

	writeJSON(w, http.StatusCreated, h.status())
}

// stop handles POST /api/recording/stop.
func (h *RecordingHandler) stop(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Stop(); err != nil {
		log.Printf("Failed to stop recording: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to stop recording")
		return
	}

	writeJSON(w, http.StatusOK, h.status())
}

// download handles GET /api/recording/download. Only the latest recording
// is held in memory; an id naming any other recording is not found.
func (h *RecordingHandler) download(w http.ResponseWriter, r *http.Request) {
	b := h.controller.Latest()
	if b == nil {
		writeError(w, http.StatusNotFound, "No recording available")
		return
	}
	if id := r.URL.Query().Get("id"); id != "" && id != b.ID {
		writeError(w, http.StatusNotFound, "Recording not found")
		return
	}

	w.Header().Set("Content-Type", b.MediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", recording.DownloadName))
	w.Header().Set("Content-Length", strconv.Itoa(b.Size()))
	w.WriteHeader(http.StatusOK)
	w.Write(b.Data)
}
