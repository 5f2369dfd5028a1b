// Package detector provides face detection types and the model collaborators
// used by the render loop.
package detector

// Landmark layout of the 68-point face model.
const (
	JawStart       = 0
	RightBrowStart = 17
	LeftBrowStart  = 22
	NoseStart      = 27
	RightEyeStart  = 36
	LeftEyeStart   = 42
	MouthStart     = 48
	NumLandmarks   = 68
)

// Point2D is a landmark position in pixels.
type Point2D struct {
	X float64 `json:"x" cbor:"x"`
	Y float64 `json:"y" cbor:"y"`
}

// Box is a face bounding box in pixels.
type Box struct {
	X      float64 `json:"x" cbor:"x"`
	Y      float64 `json:"y" cbor:"y"`
	Width  float64 `json:"width" cbor:"width"`
	Height float64 `json:"height" cbor:"height"`
}

// Size is an image size in pixels.
type Size struct {
	Width  int `json:"width" cbor:"width"`
	Height int `json:"height" cbor:"height"`
}

// Face is one detection with its landmark set.
type Face struct {
	Box    Box       `json:"box" cbor:"box"`
	Score  float64   `json:"score" cbor:"score"`
	Points []Point2D `json:"points" cbor:"points"`
	// Source is the size of the image the coordinates refer to.
	Source Size `json:"source" cbor:"source"`
}

// ResizeResults maps every face from its Source size to target. The input
// slice is not modified. Faces without a Source size are copied unchanged
// apart from taking target as their new Source.
func ResizeResults(faces []Face, target Size) []Face {
	if faces == nil {
		return nil
	}

	out := make([]Face, len(faces))
	for i, f := range faces {
		sx, sy := 1.0, 1.0
		if f.Source.Width > 0 && f.Source.Height > 0 {
			sx = float64(target.Width) / float64(f.Source.Width)
			sy = float64(target.Height) / float64(f.Source.Height)
		}

		resized := Face{
			Box: Box{
				X:      f.Box.X * sx,
				Y:      f.Box.Y * sy,
				Width:  f.Box.Width * sx,
				Height: f.Box.Height * sy,
			},
			Score:  f.Score,
			Points: make([]Point2D, len(f.Points)),
			Source: target,
		}
		for j, p := range f.Points {
			resized.Points[j] = Point2D{X: p.X * sx, Y: p.Y * sy}
		}
		out[i] = resized
	}

	return out
}
