package drowsiness

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Heatmaps is one frame of landmark confidence maps, stored channel-major and
// row-major within a channel.
type Heatmaps struct {
	Channels int
	Height   int
	Width    int
	Data     []float64
}

// Channel returns the k-th confidence map without copying.
func (h Heatmaps) Channel(k int) []float64 {
	n := h.Height * h.Width
	return h.Data[k*n : (k+1)*n]
}

// DecodeHeatmaps converts each channel's peak into a point scaled to an
// outW x outH frame. Ties keep the first maximum in row-major order, so a flat
// channel decodes to (0,0).
func DecodeHeatmaps(h Heatmaps, landmarks int, outW, outH float64) (LandmarkSet, error) {
	if h.Channels != landmarks || !h.sizeMatches() {
		return nil, &ShapeError{
			Channels: h.Channels,
			Height:   h.Height,
			Width:    h.Width,
			Want:     landmarks,
			DataLen:  len(h.Data),
		}
	}

	sx := outW / float64(h.Width)
	sy := outH / float64(h.Height)

	points := make(LandmarkSet, h.Channels)
	for k := 0; k < h.Channels; k++ {
		idx := argmax(h.Channel(k))
		row, col := idx/h.Width, idx%h.Width
		points[k] = Point{X: float64(col) * sx, Y: float64(row) * sy}
	}
	return points, nil
}

// sizeMatches reports whether Data holds exactly Channels*Height*Width values.
// Dimensions are bounded by len(Data) before multiplying so the product cannot
// overflow.
func (h Heatmaps) sizeMatches() bool {
	n := len(h.Data)
	if h.Channels <= 0 || h.Height <= 0 || h.Width <= 0 {
		return false
	}
	if h.Height > n || h.Width > n/h.Height {
		return false
	}
	plane := h.Height * h.Width
	return n%plane == 0 && n/plane == h.Channels
}

// argmax is floats.MaxIdx except that the first NaN wins, as a NaN peak has no
// ordering against the rest of the channel.
func argmax(ch []float64) int {
	for i, v := range ch {
		if math.IsNaN(v) {
			return i
		}
	}
	return floats.MaxIdx(ch)
}
