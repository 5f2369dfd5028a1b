// Package server provides the HTTP server for the face recorder.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"
	"time"

	"github.com/ayusman/facerecorder/internal/recording"
	"github.com/ayusman/facerecorder/internal/render"
	"github.com/ayusman/facerecorder/internal/server/api"
	"github.com/ayusman/facerecorder/internal/store"
)

const shutdownTimeout = 5 * time.Second

//go:embed web
var webFS embed.FS

// Config holds the server configuration.
type Config struct {
	// StaticDir overrides the embedded UI when set.
	StaticDir string
	Store     *store.Store
	Loop      *render.Loop
	Recorder  *recording.Controller
}

// Server represents the HTTP server for the face recorder.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Loop != nil {
		s.mux.HandleFunc("/api/stats", s.handleStats)
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Loop.Display()))
		s.mux.Handle("/api/landmarks", NewLandmarksHandler(s.config.Loop))
	}

	if s.config.Recorder != nil {
		recordingHandler := api.NewRecordingHandler(s.config.Recorder)
		s.mux.Handle("/api/recording", recordingHandler)
		s.mux.Handle("/api/recording/", recordingHandler)
	}

	if s.config.Store != nil {
		recordingsHandler := api.NewRecordingsHandler(s.config.Store)
		s.mux.Handle("/api/recordings", recordingsHandler)
		s.mux.Handle("/api/recordings/", recordingsHandler)
	}

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	} else {
		ui, _ := fs.Sub(webFS, "web")
		s.mux.Handle("/", http.FileServer(http.FS(ui)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Loop != nil {
		response["running"] = s.config.Loop.Running()
		if d := s.config.Loop.Detector(); d != nil {
			response["model_loaded"] = d.Loaded()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// handleStats handles GET requests to /api/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	size := s.config.Loop.Display().Size()
	response := struct {
		render.Stats
		Interval string `json:"interval"`
		Width    int    `json:"width"`
		Height   int    `json:"height"`
	}{
		Stats:    s.config.Loop.Stats(),
		Interval: s.config.Loop.Interval().String(),
		Width:    size.X,
		Height:   size.Y,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: s,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Streaming handlers only return once their client or surface goes away.
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		httpServer.Close()
	}
	return nil
}
