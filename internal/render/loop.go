package render

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/facerecorder/internal/capture"
	"github.com/ayusman/facerecorder/internal/detector"
)

// DefaultInterval is the loop cadence.
const DefaultInterval = 100 * time.Millisecond

// TickOutcome describes what a single tick did.
type TickOutcome int

const (
	// TickPainted means both surfaces were repainted.
	TickPainted TickOutcome = iota
	// TickBusy means the previous tick was still running and this one was skipped.
	TickBusy
	// TickNotLoaded means the model was not ready and nothing was drawn.
	TickNotLoaded
	// TickFailed means reading or detection failed and nothing was drawn.
	TickFailed
)

func (o TickOutcome) String() string {
	switch o {
	case TickPainted:
		return "painted"
	case TickBusy:
		return "busy"
	case TickNotLoaded:
		return "not_loaded"
	case TickFailed:
		return "failed"
	default:
		return fmt.Sprintf("TickOutcome(%d)", int(o))
	}
}

// Result is the detection outcome of one painted tick, in frame coordinates.
type Result struct {
	Faces     []detector.Face `json:"faces" cbor:"faces"`
	Size      detector.Size   `json:"size" cbor:"size"`
	Timestamp int64           `json:"timestamp" cbor:"timestamp"`
}

// Stats counts tick outcomes since the loop was created.
type Stats struct {
	Painted   uint64 `json:"painted"`
	Busy      uint64 `json:"busy"`
	NotLoaded uint64 `json:"not_loaded"`
	Failed    uint64 `json:"failed"`
	LastFaces int    `json:"last_faces"`
}

// LoopConfig holds the collaborators of a Loop.
type LoopConfig struct {
	Camera   capture.Camera
	Detector detector.Detector
	Display  *Surface
	Record   *Surface
	Interval time.Duration
}

// Loop repaints the display and record surfaces from the camera at a fixed
// cadence. Ticks never overlap: a tick that fires while the previous one is
// still detecting is skipped.
type Loop struct {
	camera   capture.Camera
	detector detector.Detector
	display  *Surface
	record   *Surface
	interval time.Duration

	inFlight atomic.Bool

	mu          sync.RWMutex
	stats       Stats
	stopCh      chan struct{}
	subscribers map[int]func(Result)
	nextSub     int
}

// NewLoop creates a stopped Loop.
func NewLoop(config LoopConfig) *Loop {
	interval := config.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Loop{
		camera:      config.Camera,
		detector:    config.Detector,
		display:     config.Display,
		record:      config.Record,
		interval:    interval,
		subscribers: make(map[int]func(Result)),
	}
}

// Display returns the surface shown to the user.
func (l *Loop) Display() *Surface {
	return l.display
}

// Record returns the surface used as the recording source.
func (l *Loop) Record() *Surface {
	return l.record
}

// Interval returns the tick cadence.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

// Detector returns the landmark detector.
func (l *Loop) Detector() detector.Detector {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.detector
}

// Subscribe registers fn to receive every painted tick's result. fn runs on
// the tick goroutine and must not block. The returned function unsubscribes.
func (l *Loop) Subscribe(fn func(Result)) (cancel func()) {
	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subscribers[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.subscribers, id)
		l.mu.Unlock()
	}
}

// Stats returns a copy of the tick counters.
func (l *Loop) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stats
}

// Start begins ticking. Starting a running loop is a no-op.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopCh != nil {
		return
	}

	l.stopCh = make(chan struct{})
	go l.run(l.stopCh)
}

// Stop halts the ticker. A tick already in flight runs to completion.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopCh != nil {
		close(l.stopCh)
		l.stopCh = nil
	}
}

// Running reports whether the ticker is active.
func (l *Loop) Running() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stopCh != nil
}

func (l *Loop) run(stopCh chan struct{}) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			// Detection may outlast the interval; the ticker keeps its cadence
			// and Tick drops the overlap.
			go func() {
				if _, err := l.Tick(); err != nil {
					log.Printf("Render tick failed: %v", err)
				}
			}()
		}
	}
}

// Tick runs one capture, detect and paint cycle.
func (l *Loop) Tick() (TickOutcome, error) {
	if !l.inFlight.CompareAndSwap(false, true) {
		l.count(TickBusy, 0)
		return TickBusy, nil
	}
	defer l.inFlight.Store(false)

	det := l.Detector()
	if det == nil || !det.Loaded() {
		l.count(TickNotLoaded, 0)
		return TickNotLoaded, nil
	}

	frame, err := l.camera.ReadFrame()
	if err != nil {
		l.count(TickFailed, 0)
		return TickFailed, fmt.Errorf("read frame: %w", err)
	}
	defer frame.Close()

	faces, err := det.Detect(frame)
	if err != nil {
		l.count(TickFailed, 0)
		return TickFailed, fmt.Errorf("detect faces: %w", err)
	}

	size := detector.Size{Width: frame.Cols(), Height: frame.Rows()}
	resized := detector.ResizeResults(faces, size)

	for _, s := range []*Surface{l.display, l.record} {
		if s == nil {
			continue
		}
		if err := s.Paint(frame, resized); err != nil {
			l.count(TickFailed, 0)
			return TickFailed, fmt.Errorf("paint %s: %w", s.Name(), err)
		}
	}

	l.count(TickPainted, len(resized))
	l.notify(Result{
		Faces:     resized,
		Size:      size,
		Timestamp: time.Now().UnixMilli(),
	})

	return TickPainted, nil
}

func (l *Loop) count(outcome TickOutcome, faces int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch outcome {
	case TickPainted:
		l.stats.Painted++
		l.stats.LastFaces = faces
	case TickBusy:
		l.stats.Busy++
	case TickNotLoaded:
		l.stats.NotLoaded++
	case TickFailed:
		l.stats.Failed++
	}
}

func (l *Loop) notify(r Result) {
	l.mu.RLock()
	subs := make([]func(Result), 0, len(l.subscribers))
	for _, fn := range l.subscribers {
		subs = append(subs, fn)
	}
	l.mu.RUnlock()

	for _, fn := range subs {
		fn(r)
	}
}
