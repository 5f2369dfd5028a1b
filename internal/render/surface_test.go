package render

import (
	"bytes"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/ayusman/facerecorder/internal/detector"
	"github.com/ayusman/facerecorder/testdata"
)

func TestSurface_Paint(t *testing.T) {
	frame := testdata.GradientFrame(320, 240)
	defer frame.Close()

	s := NewSurface("display")
	defer s.Close()

	if got := s.Size(); got != (image.Point{}) {
		t.Errorf("Size() before paint = %v, want zero", got)
	}

	t.Run("resizes to frame and copies pixels", func(t *testing.T) {
		if err := s.Paint(&frame, nil); err != nil {
			t.Fatalf("Paint() error = %v", err)
		}

		if got := s.Size(); got != image.Pt(320, 240) {
			t.Errorf("Size() = %v, want (320,240)", got)
		}

		snap := s.Snapshot()
		defer snap.Close()
		if !testdata.Equal(snap, frame) {
			t.Error("surface without faces should equal the raw frame")
		}
	})

	t.Run("follows a new frame size", func(t *testing.T) {
		small := testdata.SolidFrame(160, 120, 10, 20, 30)
		defer small.Close()

		if err := s.Paint(&small, nil); err != nil {
			t.Fatalf("Paint() error = %v", err)
		}
		if got := s.Size(); got != image.Pt(160, 120) {
			t.Errorf("Size() = %v, want (160,120)", got)
		}
	})

	t.Run("rejects empty frame", func(t *testing.T) {
		if err := s.Paint(nil, nil); err == nil {
			t.Error("expected error for nil frame")
		}
	})
}

func TestSurface_DrawsLandmarks(t *testing.T) {
	frame := testdata.SolidFrame(640, 480, 0, 0, 0)
	defer frame.Close()

	face := detector.SampleFace(detector.Size{Width: 640, Height: 480})

	s := NewSurface("record")
	defer s.Close()

	if err := s.Paint(&frame, []detector.Face{face}); err != nil {
		t.Fatalf("Paint() error = %v", err)
	}

	snap := s.Snapshot()
	defer snap.Close()

	for i, p := range face.Points {
		px := snap.GetVecbAt(round(p.Y), round(p.X))
		if px[0] == 0 && px[1] == 0 && px[2] == 0 {
			t.Errorf("landmark %d at (%.1f,%.1f) not drawn", i, p.X, p.Y)
		}
	}

	// A pixel far from the face stays black.
	if px := snap.GetVecbAt(5, 5); px[0] != 0 || px[1] != 0 || px[2] != 0 {
		t.Errorf("background pixel = %v, want black", px)
	}
}

func TestDrawLandmarks_Count(t *testing.T) {
	frame := testdata.SolidFrame(320, 240, 0, 0, 0)
	defer frame.Close()

	tests := []struct {
		name  string
		faces []detector.Face
		want  int
	}{
		{name: "no faces", faces: nil, want: 0},
		{name: "one face", faces: []detector.Face{detector.SampleFace(detector.Size{Width: 320, Height: 240})}, want: detector.NumLandmarks},
		{
			name: "two faces",
			faces: []detector.Face{
				detector.SampleFace(detector.Size{Width: 320, Height: 240}),
				detector.SampleFace(detector.Size{Width: 160, Height: 120}),
			},
			want: 2 * detector.NumLandmarks,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DrawLandmarks(&frame, tt.faces); got != tt.want {
				t.Errorf("DrawLandmarks() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSurface_CaptureStream(t *testing.T) {
	frame := testdata.GradientFrame(64, 48)
	defer frame.Close()

	s := NewSurface("record")
	defer s.Close()

	st := s.CaptureStream()

	if err := s.Paint(&frame, nil); err != nil {
		t.Fatalf("Paint() error = %v", err)
	}

	select {
	case data := <-st.Frames():
		if !bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
			t.Errorf("stream frame is not a JPEG: % x", data[:2])
		}
	case <-time.After(time.Second):
		t.Fatal("no frame received on capture stream")
	}

	st.Close()
	st.Close()

	if _, ok := <-st.Frames(); ok {
		t.Error("Frames() should be closed after Close")
	}
}

func TestSurface_CaptureStream_DropsWhenFull(t *testing.T) {
	frame := testdata.SolidFrame(32, 24, 1, 2, 3)
	defer frame.Close()

	s := NewSurface("record")
	defer s.Close()

	st := s.CaptureStream()
	defer st.Close()

	for i := 0; i < streamBuffer+3; i++ {
		if err := s.Paint(&frame, nil); err != nil {
			t.Fatalf("Paint() %d error = %v", i, err)
		}
	}

	if got := st.Dropped(); got != 3 {
		t.Errorf("Dropped() = %d, want 3", got)
	}
}

func TestSurface_Close(t *testing.T) {
	frame := testdata.SolidFrame(32, 24, 1, 2, 3)
	defer frame.Close()

	s := NewSurface("display")
	st := s.CaptureStream()

	s.Close()
	s.Close()

	if _, ok := <-st.Frames(); ok {
		t.Error("stream should be closed with its surface")
	}
	st.Close()

	if err := s.Paint(&frame, nil); !errors.Is(err, ErrSurfaceClosed) {
		t.Errorf("Paint() after Close error = %v, want ErrSurfaceClosed", err)
	}
}

func TestSurface_JPEG(t *testing.T) {
	s := NewSurface("display")
	defer s.Close()

	data, err := s.JPEG()
	if err != nil || data != nil {
		t.Errorf("JPEG() before paint = (%v, %v), want (nil, nil)", data, err)
	}

	frame := testdata.SolidFrame(32, 24, 1, 2, 3)
	defer frame.Close()
	s.Paint(&frame, nil)

	data, err = s.JPEG()
	if err != nil {
		t.Fatalf("JPEG() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
		t.Error("JPEG() did not return JPEG data")
	}
}

func TestSurface_CaptureStreamAfterClose(t *testing.T) {
	s := NewSurface("record")
	s.Close()

	st := s.CaptureStream()
	if _, ok := <-st.Frames(); ok {
		t.Error("stream from a closed surface should be closed")
	}
	st.Close()

	if got := s.Size(); got.X != 0 || got.Y != 0 {
		t.Errorf("Size() after Close = %v, want zero", got)
	}
}
