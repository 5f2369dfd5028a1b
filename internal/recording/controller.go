// Package recording captures the record surface into a downloadable video.
package recording

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/facerecorder/internal/render"
)

const (
	// MediaType is the declared type of every finished recording.
	MediaType = "video/webm"
	// StorageKey is the slot the last recording is written to, base64 encoded.
	StorageKey = "face-recorded-video"
	// DownloadName is the file name offered for download.
	DownloadName = "face-recording.webm"

	storageTimeout = 10 * time.Second
)

var (
	// ErrAlreadyRecording is returned by Start while a session is active.
	ErrAlreadyRecording = errors.New("already recording")
	// ErrNoSurface is returned by Start when there is no surface to record.
	ErrNoSurface = errors.New("no record surface")
)

// State is the controller state.
type State int

const (
	StateIdle State = iota
	StateRecording
)

func (s State) String() string {
	if s == StateRecording {
		return "recording"
	}
	return "idle"
}

// Fragment is one chunk of encoded video emitted by a Recorder.
type Fragment []byte

// Recorder encodes a captured stream. Handlers are registered before Start,
// and Start must not invoke them synchronously. OnStop fires once, after
// Stop, when the last fragment has been delivered.
type Recorder interface {
	OnDataAvailable(fn func(Fragment))
	OnStop(fn func())
	Start() error
	Stop() error
}

// Factory creates a Recorder bound to stream.
type Factory func(stream *render.Stream) (Recorder, error)

// Source provides the stream to record.
type Source interface {
	CaptureStream() *render.Stream
}

// Storage receives the base64 encoded recording. Nothing reads it back.
type Storage interface {
	Put(ctx context.Context, key, value string) error
}

// Blob is a finished recording.
type Blob struct {
	ID        string
	MediaType string
	Data      []byte
	Fragments int
	StartedAt time.Time
	StoppedAt time.Time
}

// Size returns the blob length in bytes.
func (b *Blob) Size() int {
	return len(b.Data)
}

// URL returns the transient download reference for this blob.
func (b *Blob) URL() string {
	return "/api/recording/download?id=" + b.ID
}

type session struct {
	seq       uint64
	id        string
	recorder  Recorder
	stream    *render.Stream
	fragments []Fragment
	startedAt time.Time
	finalized bool
	done      chan struct{}
}

// Config holds the collaborators of a Controller.
type Config struct {
	Source      Source
	NewRecorder Factory
	Storage     Storage
}

// Controller is the Idle/Recording state machine around a Recorder.
type Controller struct {
	config    Config
	state     State
	current   *session
	latest    *Blob
	seq       uint64
	latestSeq uint64
	listeners []func(*Blob)
	watchers  []func(State)
	mu        sync.Mutex
}

// NewController creates an idle controller.
func NewController(config Config) *Controller {
	return &Controller{config: config}
}

// OnFinalize registers fn to be called with every finished blob, including
// blobs of replaced sessions that finish late.
func (c *Controller) OnFinalize(fn func(*Blob)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// OnStateChange registers fn to be called after every state transition.
func (c *Controller) OnStateChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watchers = append(c.watchers, fn)
}

// Start opens a new session on the source's captured stream.
func (c *Controller) Start() error {
	if err := c.start(); err != nil {
		return err
	}
	c.notify(StateRecording)
	return nil
}

func (c *Controller) start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateRecording {
		return ErrAlreadyRecording
	}
	if c.config.Source == nil {
		return ErrNoSurface
	}

	stream := c.config.Source.CaptureStream()
	rec, err := c.config.NewRecorder(stream)
	if err != nil {
		stream.Close()
		return fmt.Errorf("create recorder: %w", err)
	}

	c.seq++
	s := &session{
		seq:       c.seq,
		id:        uuid.NewString(),
		recorder:  rec,
		stream:    stream,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}

	rec.OnDataAvailable(func(f Fragment) { c.handleData(s, f) })
	rec.OnStop(func() { c.handleStop(s) })

	if err := rec.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("start recorder: %w", err)
	}

	c.current = s
	c.state = StateRecording
	log.Printf("Recording %s started", s.id)

	return nil
}

// Stop signals the active recorder to stop. It is a no-op when idle. The
// blob is assembled later, when the recorder reports it has stopped.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.state != StateRecording || c.current == nil {
		c.mu.Unlock()
		return nil
	}
	s := c.current
	c.state = StateIdle
	c.mu.Unlock()

	c.notify(StateIdle)

	// Recorders may fire OnStop synchronously, so the lock is not held here.
	if err := s.recorder.Stop(); err != nil {
		return fmt.Errorf("stop recorder: %w", err)
	}
	return nil
}

// HandleData feeds a fragment to the current session.
func (c *Controller) HandleData(f Fragment) {
	c.mu.Lock()
	s := c.current
	c.mu.Unlock()

	if s != nil {
		c.handleData(s, f)
	}
}

// HandleStop finalizes the current session.
func (c *Controller) HandleStop() {
	c.mu.Lock()
	s := c.current
	c.mu.Unlock()

	if s != nil {
		c.handleStop(s)
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Recording reports whether a session is active.
func (c *Controller) Recording() bool {
	return c.State() == StateRecording
}

// SessionID returns the ID of the active session, or "" when idle.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRecording || c.current == nil {
		return ""
	}
	return c.current.id
}

// Wait blocks until the most recent session has been finalized and its
// listeners have returned, or until ctx is done. It returns immediately
// when no session was ever started.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	s := c.current
	c.mu.Unlock()

	if s == nil {
		return nil
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Latest returns the blob of the most recently started session that has
// finished, or nil.
func (c *Controller) Latest() *Blob {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

func (c *Controller) handleData(s *session, f Fragment) {
	if len(f) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if s.finalized {
		return
	}
	s.fragments = append(s.fragments, append(Fragment(nil), f...))
}

func (c *Controller) handleStop(s *session) {
	c.mu.Lock()
	if s.finalized {
		c.mu.Unlock()
		return
	}
	s.finalized = true

	size := 0
	for _, f := range s.fragments {
		size += len(f)
	}
	data := make([]byte, 0, size)
	for _, f := range s.fragments {
		data = append(data, f...)
	}

	blob := &Blob{
		ID:        s.id,
		MediaType: MediaType,
		Data:      data,
		Fragments: len(s.fragments),
		StartedAt: s.startedAt,
		StoppedAt: time.Now(),
	}
	s.fragments = nil

	// A replaced session that finishes late must not shadow a newer blob.
	newest := s.seq > c.latestSeq
	if newest {
		c.latest = blob
		c.latestSeq = s.seq
	}

	// The recorder may stop on its own, for example when the encoder exits.
	selfStopped := c.current == s && c.state == StateRecording
	if selfStopped {
		c.state = StateIdle
	}

	listeners := append([]func(*Blob)(nil), c.listeners...)
	c.mu.Unlock()

	if selfStopped {
		c.notify(StateIdle)
	}

	defer close(s.done)

	s.stream.Close()
	log.Printf("Recording %s finished: %d bytes in %d fragments", blob.ID, blob.Size(), blob.Fragments)

	if newest {
		c.persist(blob)
	}

	for _, fn := range listeners {
		fn(blob)
	}
}

func (c *Controller) notify(state State) {
	c.mu.Lock()
	watchers := append([]func(State)(nil), c.watchers...)
	c.mu.Unlock()

	for _, fn := range watchers {
		fn(state)
	}
}

func (c *Controller) persist(blob *Blob) {
	if c.config.Storage == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	encoded := base64.StdEncoding.EncodeToString(blob.Data)
	if err := c.config.Storage.Put(ctx, StorageKey, encoded); err != nil {
		log.Printf("Failed to store recording %s: %v", blob.ID, err)
	}
}
