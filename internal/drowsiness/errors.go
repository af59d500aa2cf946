package drowsiness

import (
	"errors"
	"fmt"
)

var (
	ErrShape = errors.New("heatmap shape mismatch")
	ErrData  = errors.New("insufficient landmark data")
)

// ShapeError reports a heatmap tensor that does not match the expected layout.
type ShapeError struct {
	Channels, Height, Width int
	Want                    int
	DataLen                 int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("heatmap shape %dx%dx%d (%d values) does not match %d landmarks",
		e.Channels, e.Height, e.Width, e.DataLen, e.Want)
}

func (e *ShapeError) Unwrap() error { return ErrShape }

// DataError reports a landmark set too short to index the eye and mouth contours.
type DataError struct {
	Got, Want int
}

func (e *DataError) Error() string {
	return fmt.Sprintf("landmark set has %d points, need at least %d", e.Got, e.Want)
}

func (e *DataError) Unwrap() error { return ErrData }
