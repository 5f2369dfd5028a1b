package detector

import (
	"context"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	faces  []Face
	err    error
	loaded bool
	calls  int
	block  chan struct{}
	mu     sync.Mutex
}

// NewMockDetector returns a loaded MockDetector that finds no faces.
func NewMockDetector() *MockDetector {
	return &MockDetector{loaded: true}
}

// SetFaces sets the faces that will be returned by Detect.
func (m *MockDetector) SetFaces(faces []Face) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = faces
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetLoaded controls what Loaded reports.
func (m *MockDetector) SetLoaded(loaded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = loaded
}

// Block makes Detect wait until the returned function is called.
func (m *MockDetector) Block() (release func()) {
	ch := make(chan struct{})
	m.mu.Lock()
	m.block = ch
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { close(ch) })
	}
}

// Calls returns how many times Detect ran.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockDetector) Load(ctx context.Context) error {
	m.SetLoaded(true)
	return nil
}

func (m *MockDetector) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// Detect returns the pre-configured faces or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]Face, error) {
	m.mu.Lock()
	m.calls++
	block := m.block
	m.mu.Unlock()

	if block != nil {
		<-block
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.faces, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// SampleFace returns a 68-point face centred in an image of the given size.
// Points lie on a grid inside the face box so every point is distinct.
func SampleFace(source Size) Face {
	w, h := float64(source.Width), float64(source.Height)
	box := Box{X: w * 0.3, Y: h * 0.25, Width: w * 0.4, Height: h * 0.5}

	face := Face{
		Box:    box,
		Score:  0.93,
		Points: make([]Point2D, NumLandmarks),
		Source: source,
	}

	cx, cy := box.X+box.Width/2, box.Y+box.Height/2
	for i := 0; i < NumLandmarks; i++ {
		col, row := i%12, i/12
		face.Points[i] = Point2D{
			X: cx - box.Width*0.4 + float64(col)*box.Width*0.8/11,
			Y: cy - box.Height*0.4 + float64(row)*box.Height*0.8/5,
		}
	}

	return face
}
