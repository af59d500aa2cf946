package tensor

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"AlertMate/go-backend/internal/drowsiness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	hm := drowsiness.Heatmaps{Channels: 2, Height: 2, Width: 3, Data: []float64{0, 0.5, 1, -1, 2.25, 8, 0, 0, 0, 0, 0, 0.125}}

	got, err := Decode(Encode(hm))
	require.NoError(t, err)
	assert.Equal(t, hm, got)
}

func TestDecode_Truncated(t *testing.T) {
	_, err := Decode([]byte{0, 0, 0})
	assert.True(t, errors.Is(err, ErrTruncated))

	payload := Encode(drowsiness.Heatmaps{Channels: 1, Height: 2, Width: 2, Data: []float64{1, 2, 3, 4}})
	_, err = Decode(payload[:len(payload)-1])
	assert.True(t, errors.Is(err, ErrTruncated))
}

func TestDecode_FeedsDecoder(t *testing.T) {
	data := make([]float64, 4*4)
	data[2*4+1] = 0.75
	payload := Encode(drowsiness.Heatmaps{Channels: 1, Height: 4, Width: 4, Data: data})

	hm, err := Decode(payload)
	require.NoError(t, err)

	lm, err := drowsiness.DecodeHeatmaps(hm, 1, 40, 40)
	require.NoError(t, err)
	assert.Equal(t, drowsiness.Point{X: 10, Y: 20}, lm[0])
}

func header(c, h, w uint32) []byte {
	b := make([]byte, headerSize)
	binary.BigEndian.PutUint32(b[0:], c)
	binary.BigEndian.PutUint32(b[4:], h)
	binary.BigEndian.PutUint32(b[8:], w)
	return b
}

func TestDecode_OversizedHeader(t *testing.T) {
	cases := map[string][]byte{
		"product wraps to zero": header(68, 1<<31, 1<<31),
		"huge plane":            append(header(68, 1<<31, 1<<31), make([]byte, 64)...),
		"huge channel count":    append(header(1<<31, 2, 2), make([]byte, 16)...),
		"short body":            append(header(68, 64, 64), make([]byte, 4)...),
		"ragged body":           append(header(1, 1, 1), make([]byte, 5)...),
	}
	for name, payload := range cases {
		payload := payload
		t.Run(name, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() {
				var hm drowsiness.Heatmaps
				hm, err = Decode(payload)
				if err == nil {
					_, err = drowsiness.DecodeHeatmaps(hm, 68, 640, 480)
				}
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTruncated))
		})
	}
}

func TestDecode_NonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		payload := Encode(drowsiness.Heatmaps{Channels: 1, Height: 1, Width: 2, Data: []float64{0.5, v}})
		_, err := Decode(payload)
		assert.Truef(t, errors.Is(err, ErrNonFinite), "value %v", v)
	}
}

func TestDecode_EmptyTensor(t *testing.T) {
	hm, err := Decode(header(0, 4, 4))
	require.NoError(t, err)
	assert.Empty(t, hm.Data)

	_, err = drowsiness.DecodeHeatmaps(hm, 68, 640, 480)
	assert.True(t, errors.Is(err, drowsiness.ErrShape))
}
