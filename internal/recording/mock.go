package recording

import (
	"errors"
	"sync"

	"github.com/ayusman/facerecorder/internal/render"
)

// MockRecorder is a Recorder whose fragments are emitted by the test.
type MockRecorder struct {
	Stream *render.Stream

	// HoldStop keeps Stop from firing OnStop until FireStop is called.
	HoldStop bool
	// StartErr is returned by Start when set.
	StartErr error

	onData  func(Fragment)
	onStop  func()
	started bool
	stopped int
	mu      sync.Mutex
}

// NewMockRecorder creates a MockRecorder bound to stream.
func NewMockRecorder(stream *render.Stream) *MockRecorder {
	return &MockRecorder{
		Stream: stream,
		onData: func(Fragment) {},
		onStop: func() {},
	}
}

func (m *MockRecorder) OnDataAvailable(fn func(Fragment)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onData = fn
}

func (m *MockRecorder) OnStop(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStop = fn
}

func (m *MockRecorder) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StartErr != nil {
		return m.StartErr
	}
	m.started = true
	return nil
}

// Stop records the call and, unless HoldStop is set, fires OnStop.
func (m *MockRecorder) Stop() error {
	m.mu.Lock()
	m.stopped++
	hold := m.HoldStop
	m.mu.Unlock()

	if !hold {
		m.FireStop()
	}
	return nil
}

// Emit delivers a fragment to the data handler.
func (m *MockRecorder) Emit(f Fragment) {
	m.mu.Lock()
	fn := m.onData
	m.mu.Unlock()
	fn(f)
}

// FireStop invokes the stop handler.
func (m *MockRecorder) FireStop() {
	m.mu.Lock()
	fn := m.onStop
	m.mu.Unlock()
	fn()
}

// Started reports whether Start succeeded.
func (m *MockRecorder) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// StopCalls returns how many times Stop was called.
func (m *MockRecorder) StopCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// MockFactory hands out MockRecorders and remembers them.
type MockFactory struct {
	// Err makes New fail.
	Err error
	// HoldStop is copied to every recorder created.
	HoldStop bool

	recorders []*MockRecorder
	mu        sync.Mutex
}

// New implements Factory.
func (f *MockFactory) New(stream *render.Stream) (Recorder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	if stream == nil {
		return nil, errors.New("nil stream")
	}

	rec := NewMockRecorder(stream)
	rec.HoldStop = f.HoldStop
	f.recorders = append(f.recorders, rec)
	return rec, nil
}

// Last returns the most recently created recorder, or nil.
func (f *MockFactory) Last() *MockRecorder {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.recorders) == 0 {
		return nil
	}
	return f.recorders[len(f.recorders)-1]
}

// Count returns how many recorders were created.
func (f *MockFactory) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recorders)
}
