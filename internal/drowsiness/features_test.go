package drowsiness

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openEye has a 4px horizontal span and 2px openings, EAR = 0.5.
var openEye = []Point{{0, 0}, {1, -1}, {3, -1}, {4, 0}, {3, 1}, {1, 1}}

func faceWith(left, right, mouth []Point) LandmarkSet {
	lm := make(LandmarkSet, NumLandmarks)
	copy(lm[LeftEyeStart:], left)
	copy(lm[RightEyeStart:], right)
	copy(lm[MouthStart:], mouth)
	return lm
}

// mouthWith builds a 20-point mouth 10px wide with the given vertical gap.
func mouthWith(gap float64) []Point {
	q := make([]Point, 20)
	q[0] = Point{0, 0}
	q[6] = Point{10, 0}
	q[2] = Point{3, -gap / 2}
	q[10] = Point{3, gap / 2}
	q[4] = Point{7, -gap / 2}
	q[8] = Point{7, gap / 2}
	return q
}

func TestEyeAspectRatio(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 0.5, EyeAspectRatio(openEye), 1e-12)
}

func TestAspectRatios_DegenerateSpanIsZero(t *testing.T) {
	t.Parallel()

	eye := []Point{{5, 5}, {5, 0}, {5, 0}, {5, 5 + 1e-7}, {5, 9}, {5, 9}}
	assert.Equal(t, 0.0, EyeAspectRatio(eye))

	mouth := mouthWith(6)
	mouth[6] = mouth[0]
	assert.Equal(t, 0.0, MouthAspectRatio(mouth))
}

func TestMouthAspectRatio(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 0.6, MouthAspectRatio(mouthWith(6)), 1e-12)
}

func TestExtractFeatures(t *testing.T) {
	t.Parallel()

	closed := []Point{{0, 0}, {1, -0.2}, {3, -0.2}, {4, 0}, {3, 0.2}, {1, 0.2}}
	fv, err := ExtractFeatures(faceWith(openEye, closed, mouthWith(2)))
	require.NoError(t, err)

	assert.InDelta(t, 0.5, fv.LeftEAR, 1e-12)
	assert.InDelta(t, 0.1, fv.RightEAR, 1e-12)
	assert.InDelta(t, 0.3, fv.AvgEAR, 1e-12)
	assert.InDelta(t, 0.2, fv.MAR, 1e-12)
}

func TestExtractFeatures_TooFewPoints(t *testing.T) {
	t.Parallel()

	_, err := ExtractFeatures(make(LandmarkSet, 67))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrData))

	var de *DataError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 67, de.Got)
}
