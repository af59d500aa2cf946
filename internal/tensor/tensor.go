// Package tensor encodes heatmap tensors exchanged with the landmark model
// service.
//
// Layout: three big-endian uint32 (channels, height, width) followed by
// channels*height*width big-endian float32 values.
package tensor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"AlertMate/go-backend/internal/drowsiness"
)

const headerSize = 12

var (
	ErrTruncated = errors.New("tensor payload truncated")
	ErrNonFinite = errors.New("tensor holds a non-finite value")
)

func Encode(h drowsiness.Heatmaps) []byte {
	buf := make([]byte, headerSize+4*len(h.Data))
	binary.BigEndian.PutUint32(buf[0:], uint32(h.Channels))
	binary.BigEndian.PutUint32(buf[4:], uint32(h.Height))
	binary.BigEndian.PutUint32(buf[8:], uint32(h.Width))

	off := headerSize
	for _, v := range h.Data {
		binary.BigEndian.PutUint32(buf[off:], math.Float32bits(float32(v)))
		off += 4
	}
	return buf
}

// Decode checks that the payload length matches its header and that every
// value is finite. Channel count against the expected landmark count is left
// to the decoder.
func Decode(b []byte) (drowsiness.Heatmaps, error) {
	if len(b) < headerSize {
		return drowsiness.Heatmaps{}, fmt.Errorf("%w: %d byte header", ErrTruncated, len(b))
	}

	c := int(binary.BigEndian.Uint32(b[0:]))
	h := int(binary.BigEndian.Uint32(b[4:]))
	w := int(binary.BigEndian.Uint32(b[8:]))

	body := b[headerSize:]
	if !fits(c, h, w, len(body)) {
		return drowsiness.Heatmaps{}, fmt.Errorf("%w: %dx%dx%d header, have %d bytes",
			ErrTruncated, c, h, w, len(body))
	}

	data := make([]float64, len(body)/4)
	for i := range data {
		v := float64(math.Float32frombits(binary.BigEndian.Uint32(body[4*i:])))
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return drowsiness.Heatmaps{}, fmt.Errorf("%w: value %d is %v", ErrNonFinite, i, v)
		}
		data[i] = v
	}

	return drowsiness.Heatmaps{Channels: c, Height: h, Width: w, Data: data}, nil
}

// fits reports whether size bytes hold exactly c*h*w float32 values, without
// forming a product that could overflow.
func fits(c, h, w, size int) bool {
	if size%4 != 0 {
		return false
	}
	n := size / 4
	if c == 0 || h == 0 || w == 0 {
		return n == 0
	}
	if h > n || w > n/h {
		return false
	}
	plane := h * w
	return n%plane == 0 && n/plane == c
}
