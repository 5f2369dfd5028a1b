package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/facerecorder/internal/store"
)

// RecordingsHandler serves the recording history.
type RecordingsHandler struct {
	store *store.Store
}

// NewRecordingsHandler creates a new RecordingsHandler with the given store.
func NewRecordingsHandler(s *store.Store) *RecordingsHandler {
	return &RecordingsHandler{store: s}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *RecordingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Expected paths: /api/recordings or /api/recordings/{id}
	id := strings.TrimPrefix(r.URL.Path, "/api/recordings")
	id = strings.TrimPrefix(id, "/")

	if id == "" {
		h.list(w, r)
		return
	}
	h.get(w, r, id)
}

type recordingResponse struct {
	ID        string `json:"id"`
	MediaType string `json:"media_type"`
	Size      int    `json:"size"`
	Fragments int    `json:"fragments"`
	StartedAt string `json:"started_at"`
	StoppedAt string `json:"stopped_at"`
	Duration  string `json:"duration"`
}

type listRecordingsResponse struct {
	Recordings []recordingResponse `json:"recordings"`
}

func toRecordingResponse(rec *store.Recording) recordingResponse {
	return recordingResponse{
		ID:        rec.ID,
		MediaType: rec.MediaType,
		Size:      rec.Size,
		Fragments: rec.Fragments,
		StartedAt: formatTime(rec.StartedAt),
		StoppedAt: formatTime(rec.StoppedAt),
		Duration:  rec.Duration().String(),
	}
}

// list handles GET /api/recordings, newest first. ?limit=N bounds the result.
func (h *RecordingsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	recordings, err := h.store.Recordings().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list recordings")
		return
	}

	response := listRecordingsResponse{
		Recordings: make([]recordingResponse, 0, len(recordings)),
	}
	for _, rec := range recordings {
		response.Recordings = append(response.Recordings, toRecordingResponse(rec))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/recordings/{id}.
func (h *RecordingsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.store.Recordings().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get recording")
		return
	}

	writeJSON(w, http.StatusOK, toRecordingResponse(rec))
}
