// Package testdata builds synthetic video frames for tests.
package testdata

import (
	"gocv.io/x/gocv"
)

// SolidFrame returns a BGR frame filled with one colour. The caller must close it.
func SolidFrame(width, height int, b, g, r float64) gocv.Mat {
	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	mat.SetTo(gocv.NewScalar(b, g, r, 0))
	return mat
}

// GradientFrame returns a BGR frame whose pixels vary by position, so
// comparisons catch misplaced copies. The caller must close it.
func GradientFrame(width, height int) gocv.Mat {
	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			mat.SetUCharAt3(y, x, 0, uint8(x%256))
			mat.SetUCharAt3(y, x, 1, uint8(y%256))
			mat.SetUCharAt3(y, x, 2, uint8((x+y)%128))
		}
	}
	return mat
}

// Sequence returns n gradient frames. The caller must close each one.
func Sequence(n, width, height int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := GradientFrame(width, height)
		frames[i] = &m
	}
	return frames
}

// Equal reports whether two BGR frames have the same size and pixels.
func Equal(a, b gocv.Mat) bool {
	if a.Cols() != b.Cols() || a.Rows() != b.Rows() || a.Type() != b.Type() {
		return false
	}
	if a.Empty() {
		return true
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(a, b, &diff)

	// Fold channels into columns so every channel difference counts.
	flat := diff.Reshape(1, 0)
	defer flat.Close()

	return gocv.CountNonZero(flat) == 0
}
