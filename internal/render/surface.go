// Package render paints camera frames and landmark overlays onto drawing
// surfaces and drives the fixed-cadence capture loop.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"

	"github.com/ayusman/facerecorder/internal/detector"
)

// streamBuffer is how many encoded frames a slow stream consumer may lag
// behind before frames are dropped.
const streamBuffer = 8

// Overlay drawing settings.
const (
	PointRadius  = 2
	BoxThickness = 1
)

var (
	pointColor = color.RGBA{R: 0, G: 200, B: 255, A: 0}
	boxColor   = color.RGBA{R: 0, G: 255, B: 0, A: 0}
)

// ErrSurfaceClosed is returned when painting a closed surface.
var ErrSurfaceClosed = errors.New("surface is closed")

// Surface is an off-screen drawing target sized to the video frames painted
// onto it.
type Surface struct {
	name   string
	mat    gocv.Mat
	closed bool
	mu     sync.Mutex

	streams map[*Stream]struct{}
	smu     sync.Mutex
}

// NewSurface creates an empty surface.
func NewSurface(name string) *Surface {
	return &Surface{
		name:    name,
		mat:     gocv.NewMat(),
		streams: make(map[*Stream]struct{}),
	}
}

// Name returns the surface name.
func (s *Surface) Name() string {
	return s.name
}

// Size returns the current pixel dimensions.
func (s *Surface) Size() image.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return image.Point{}
	}
	return image.Pt(s.mat.Cols(), s.mat.Rows())
}

// Paint clears the surface, resizes it to the frame, draws the frame and then
// the landmark overlay. Every open capture stream receives the result.
func (s *Surface) Paint(frame *gocv.Mat, faces []detector.Face) error {
	if frame == nil || frame.Empty() {
		return errors.New("empty frame")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSurfaceClosed
	}

	if s.mat.Cols() != frame.Cols() || s.mat.Rows() != frame.Rows() || s.mat.Type() != frame.Type() {
		s.mat.Close()
		s.mat = gocv.Zeros(frame.Rows(), frame.Cols(), frame.Type())
	} else {
		s.mat.SetTo(gocv.NewScalar(0, 0, 0, 0))
	}

	frame.CopyTo(&s.mat)
	DrawLandmarks(&s.mat, faces)

	var encoded []byte
	if s.hasStreams() {
		data, err := encodeJPEG(s.mat)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("encode %s surface: %w", s.name, err)
		}
		encoded = data
	}
	s.mu.Unlock()

	if encoded != nil {
		s.publish(encoded)
	}
	return nil
}

// Snapshot returns a copy of the current pixels. The caller must close it.
func (s *Surface) Snapshot() gocv.Mat {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return gocv.NewMat()
	}
	return s.mat.Clone()
}

// JPEG encodes the current pixels. It returns nil when nothing has been painted.
func (s *Surface) JPEG() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.mat.Empty() {
		return nil, nil
	}
	return encodeJPEG(s.mat)
}

// CaptureStream returns a stream receiving every subsequent paint.
func (s *Surface) CaptureStream() *Stream {
	st := &Stream{
		frames:  make(chan []byte, streamBuffer),
		surface: s,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		close(st.frames)
		return st
	}

	s.smu.Lock()
	s.streams[st] = struct{}{}
	s.smu.Unlock()

	return st
}

// Close releases the pixels and ends all capture streams.
func (s *Surface) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		s.mat.Close()
	}
	s.mu.Unlock()

	s.smu.Lock()
	for st := range s.streams {
		delete(s.streams, st)
		close(st.frames)
	}
	s.smu.Unlock()
}

func (s *Surface) hasStreams() bool {
	s.smu.Lock()
	defer s.smu.Unlock()
	return len(s.streams) > 0
}

func (s *Surface) publish(data []byte) {
	s.smu.Lock()
	defer s.smu.Unlock()

	for st := range s.streams {
		select {
		case st.frames <- data:
		default:
			st.dropped.Add(1)
		}
	}
}

func (s *Surface) unsubscribe(st *Stream) {
	s.smu.Lock()
	defer s.smu.Unlock()

	if _, ok := s.streams[st]; ok {
		delete(s.streams, st)
		close(st.frames)
	}
}

// Stream delivers JPEG-encoded copies of a surface as it is painted.
type Stream struct {
	frames  chan []byte
	surface *Surface
	dropped atomic.Uint64
}

// Frames returns the channel of encoded frames. It is closed when the
// stream or its surface is closed.
func (st *Stream) Frames() <-chan []byte {
	return st.frames
}

// Dropped returns how many frames were skipped because the consumer lagged.
func (st *Stream) Dropped() uint64 {
	return st.dropped.Load()
}

// Close detaches the stream from its surface. It is safe to call more than once.
func (st *Stream) Close() {
	st.surface.unsubscribe(st)
}

// DrawLandmarks draws a box per face and one filled circle per landmark
// point. It returns the number of points drawn.
func DrawLandmarks(dst *gocv.Mat, faces []detector.Face) int {
	drawn := 0
	for _, f := range faces {
		box := image.Rect(
			round(f.Box.X), round(f.Box.Y),
			round(f.Box.X+f.Box.Width), round(f.Box.Y+f.Box.Height),
		)
		if !box.Empty() {
			gocv.Rectangle(dst, box, boxColor, BoxThickness)
		}

		for _, p := range f.Points {
			gocv.Circle(dst, image.Pt(round(p.X), round(p.Y)), PointRadius, pointColor, -1)
			drawn++
		}
	}
	return drawn
}

func encodeJPEG(mat gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	// GetBytes aliases native memory that Close frees.
	return append([]byte(nil), buf.GetBytes()...), nil
}

func round(v float64) int {
	return int(math.Round(v))
}
