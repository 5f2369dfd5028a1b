package detector

import (
	"context"
	"errors"

	"gocv.io/x/gocv"
)

// ErrNotLoaded is returned by Detect when the model has not finished loading.
var ErrNotLoaded = errors.New("face model not loaded")

// Detector finds faces and their landmark points in video frames.
type Detector interface {
	// Load prepares the model. It may block until the model is ready.
	Load(ctx context.Context) error

	// Loaded reports whether Detect can be called.
	Loaded() bool

	// Detect returns the faces found in frame with coordinates expressed in
	// the pixel space recorded in each Face's Source. Returns an empty slice
	// if no faces are found.
	Detect(frame *gocv.Mat) ([]Face, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds options passed to the face model.
type Config struct {
	// ModelDir is the directory holding the detector and landmark weights.
	ModelDir string

	// InputSize is the square input size the detector resizes frames to.
	InputSize int

	// MinConfidence is the minimum face score (0.0-1.0).
	MinConfidence float64
}

// DefaultConfig matches the tiny face detector defaults.
func DefaultConfig() Config {
	return Config{
		ModelDir:      "models",
		InputSize:     416,
		MinConfidence: 0.5,
	}
}
