// Package app wires the camera, detector, render loop and recording
// controller into the face recorder application.
package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ayusman/facerecorder/internal/capture"
	"github.com/ayusman/facerecorder/internal/detector"
	"github.com/ayusman/facerecorder/internal/hook"
	"github.com/ayusman/facerecorder/internal/recording"
	"github.com/ayusman/facerecorder/internal/render"
	"github.com/ayusman/facerecorder/internal/store"
)

// finalizeTimeout bounds how long Stop waits for the encoder to flush an
// active recording.
const finalizeTimeout = 15 * time.Second

// Config holds configuration options for the application.
type Config struct {
	Store *store.Store
	// KV receives the last recording. Defaults to the store's settings table.
	KV         store.KV
	CameraID   int
	Interval   time.Duration
	FFmpegPath string
	// FPS is the encoder input rate. Defaults to the loop cadence.
	FPS int
	// HookDir holds recording hooks. Empty disables hooks.
	HookDir     string
	HookTimeout time.Duration

	// Optional collaborators, mainly for tests and headless runs.
	Camera      capture.Camera
	Detector    detector.Detector
	NewRecorder recording.Factory
}

// App owns the render loop and the recording controller.
type App struct {
	config     Config
	camera     capture.Camera
	detector   detector.Detector
	display    *render.Surface
	record     *render.Surface
	loop       *render.Loop
	controller *recording.Controller
	hooks      *hook.Manager
	hookWG     sync.WaitGroup
	hookMu     sync.Mutex
	hooksDone  bool

	loaded  chan struct{}
	loadErr error
	cancel  context.CancelFunc
	running bool
	mu      sync.RWMutex
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.Interval <= 0 {
		config.Interval = render.DefaultInterval
	}
	if config.FPS <= 0 {
		config.FPS = int(time.Second / config.Interval)
		if config.FPS <= 0 {
			config.FPS = 1
		}
	}
	if config.KV == nil && config.Store != nil {
		config.KV = config.Store.Settings()
	}

	a := &App{
		config:  config,
		camera:  config.Camera,
		display: render.NewSurface("display"),
		record:  render.NewSurface("record"),
		loaded:  make(chan struct{}),
	}

	if a.camera == nil {
		a.camera = capture.NewCamera(config.CameraID)
	}

	a.detector = config.Detector
	if a.detector == nil {
		// Try the face service first, fall back to mock detector
		if fs, err := detector.NewFaceService(detector.DefaultConfig()); err == nil {
			a.detector = fs
			log.Println("Using face service landmark detection")
		} else {
			log.Printf("Face service not available (%v), using mock detector", err)
			a.detector = detector.NewMockDetector()
		}
	}

	a.loop = render.NewLoop(render.LoopConfig{
		Camera:   a.camera,
		Detector: a.detector,
		Display:  a.display,
		Record:   a.record,
		Interval: config.Interval,
	})

	newRecorder := config.NewRecorder
	if newRecorder == nil {
		ff := recording.DefaultFFmpegConfig()
		if config.FFmpegPath != "" {
			ff.Binary = config.FFmpegPath
		}
		ff.FPS = config.FPS
		newRecorder = recording.FFmpegFactory(ff)
	}

	var storage recording.Storage
	if config.KV != nil {
		storage = config.KV
	}

	a.controller = recording.NewController(recording.Config{
		Source:      a.record,
		NewRecorder: newRecorder,
		Storage:     storage,
	})
	a.controller.OnFinalize(a.saveHistory)

	if config.HookDir != "" {
		a.hooks = hook.NewManager(config.HookDir)
		if config.HookTimeout > 0 {
			a.hooks.SetTimeout(config.HookTimeout)
		}
		a.controller.OnStateChange(a.stateHooks)
		a.controller.OnFinalize(a.finishedHooks)
	}

	return a
}

// Start opens the camera, starts the render loop and loads the model in
// the background. Ticks are skipped until the model is ready.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return nil
	}

	if a.hooks != nil {
		if err := a.hooks.Discover(); err != nil {
			log.Printf("Failed to discover hooks in %s: %v", a.hooks.HookDir(), err)
		} else if n := len(a.hooks.List()); n > 0 {
			log.Printf("Loaded %d recording hooks", n)
		}
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(a.config.FPS)

	loadCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	go a.loadModel(loadCtx)

	a.loop.Start()
	a.running = true

	log.Printf("Render loop started at %v", a.config.Interval)
	return nil
}

func (a *App) loadModel(ctx context.Context) {
	start := time.Now()
	err := a.detector.Load(ctx)

	a.mu.Lock()
	a.loadErr = err
	a.mu.Unlock()
	close(a.loaded)

	if err != nil {
		log.Printf("Failed to load landmark model: %v", err)
		return
	}
	log.Printf("Landmark model loaded in %v", time.Since(start).Round(time.Millisecond))
}

// WaitLoaded blocks until the model load attempt finishes or ctx is done.
func (a *App) WaitLoaded(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-a.loaded:
		a.mu.RLock()
		defer a.mu.RUnlock()
		return a.loadErr
	}
}

// Stop ends any recording and waits for it to be finalized, then halts the
// loop and releases the camera, detector and surfaces. The App cannot be
// restarted.
func (a *App) Stop() {
	if err := a.controller.Stop(); err != nil {
		log.Printf("Error stopping recording: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	if err := a.controller.Wait(ctx); err != nil {
		log.Printf("Recording not finalized before shutdown: %v", err)
	}
	cancel()

	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}

	a.loop.Stop()

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}

	if err := a.detector.Close(); err != nil {
		log.Printf("Error closing detector: %v", err)
	}

	a.display.Close()
	a.record.Close()
	a.running = false

	a.mu.Unlock()

	log.Println("Render loop stopped")

	a.hookMu.Lock()
	a.hooksDone = true
	a.hookMu.Unlock()
	a.hookWG.Wait()
}

func (a *App) stateHooks(s recording.State) {
	if s != recording.StateRecording {
		return
	}
	a.dispatch(&hook.Event{
		Type:      hook.EventRecordingStarted,
		Recording: &hook.Recording{ID: a.controller.SessionID()},
	})
}

func (a *App) finishedHooks(b *recording.Blob) {
	a.dispatch(&hook.Event{
		Type: hook.EventRecordingFinished,
		Recording: &hook.Recording{
			ID:           b.ID,
			MediaType:    b.MediaType,
			Size:         b.Size(),
			Fragments:    b.Fragments,
			StartedAt:    b.StartedAt,
			StoppedAt:    b.StoppedAt,
			DownloadPath: b.URL(),
		},
	})
}

// dispatch runs hooks off the caller's goroutine and Stop waits for them.
// Once Stop has begun, hooks run on the caller's goroutine instead.
func (a *App) dispatch(event *hook.Event) {
	event.Timestamp = time.Now()

	a.hookMu.Lock()
	if a.hooksDone {
		a.hookMu.Unlock()
		a.hooks.Dispatch(context.Background(), event)
		return
	}
	a.hookWG.Add(1)
	a.hookMu.Unlock()

	go func() {
		defer a.hookWG.Done()
		a.hooks.Dispatch(context.Background(), event)
	}()
}

func (a *App) saveHistory(b *recording.Blob) {
	if a.config.Store == nil {
		return
	}

	err := a.config.Store.Recordings().Create(&store.Recording{
		ID:        b.ID,
		MediaType: b.MediaType,
		Size:      b.Size(),
		Fragments: b.Fragments,
		StartedAt: b.StartedAt,
		StoppedAt: b.StoppedAt,
	})
	if err != nil {
		log.Printf("Failed to save recording %s: %v", b.ID, err)
	}
}

// Running reports whether Start has been called without a matching Stop.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Detector returns the landmark detector.
func (a *App) Detector() detector.Detector {
	return a.detector
}

// Loop returns the render loop.
func (a *App) Loop() *render.Loop {
	return a.loop
}

// Hooks returns the hook manager, or nil when hooks are disabled.
func (a *App) Hooks() *hook.Manager {
	return a.hooks
}

// Recorder returns the recording controller.
func (a *App) Recorder() *recording.Controller {
	return a.controller
}
