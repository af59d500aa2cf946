// Package drowsinesstest renders synthetic faces and frames for tests of the
// packages built on top of drowsiness.
package drowsinesstest

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"

	"AlertMate/go-backend/internal/drowsiness"
)

const GridSize = 64

// GridFace places both eyes and the mouth on a 64x64 grid. The eye aspect
// ratio is eyeGap/5 and the mouth aspect ratio is mouthGap/10.
func GridFace(eyeGap, mouthGap int) drowsiness.LandmarkSet {
	lm := make(drowsiness.LandmarkSet, drowsiness.NumLandmarks)
	eye := func(start int, x0 float64) {
		y := 20.0
		g := float64(eyeGap)
		lm[start+0] = drowsiness.Point{X: x0, Y: y}
		lm[start+1] = drowsiness.Point{X: x0 + 3, Y: y - g}
		lm[start+2] = drowsiness.Point{X: x0 + 7, Y: y - g}
		lm[start+3] = drowsiness.Point{X: x0 + 10, Y: y}
		lm[start+4] = drowsiness.Point{X: x0 + 7, Y: y + g}
		lm[start+5] = drowsiness.Point{X: x0 + 3, Y: y + g}
	}
	eye(drowsiness.LeftEyeStart, 10)
	eye(drowsiness.RightEyeStart, 40)

	m := drowsiness.MouthStart
	y := 45.0
	g := float64(mouthGap)
	lm[m+0] = drowsiness.Point{X: 20, Y: y}
	lm[m+6] = drowsiness.Point{X: 40, Y: y}
	lm[m+2] = drowsiness.Point{X: 26, Y: y - g}
	lm[m+10] = drowsiness.Point{X: 26, Y: y + g}
	lm[m+4] = drowsiness.Point{X: 34, Y: y - g}
	lm[m+8] = drowsiness.Point{X: 34, Y: y + g}
	return lm
}

// Render draws a one-hot heatmap per landmark on a GridSize x GridSize grid.
func Render(lm drowsiness.LandmarkSet) drowsiness.Heatmaps {
	n := GridSize * GridSize
	h := drowsiness.Heatmaps{
		Channels: len(lm),
		Height:   GridSize,
		Width:    GridSize,
		Data:     make([]float64, len(lm)*n),
	}
	for k, p := range lm {
		h.Channel(k)[int(p.Y)*GridSize+int(p.X)] = 1
	}
	return h
}

// Open is an alert face: EAR 0.4, MAR 0.2.
func Open() drowsiness.Heatmaps { return Render(GridFace(2, 2)) }

// Closed has both eyes shut: EAR 0.
func Closed() drowsiness.Heatmaps { return Render(GridFace(0, 2)) }

// JPEG encodes a flat gray w x h frame.
func JPEG(w, h int) []byte {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = color.Gray{Y: 128}.Y
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
