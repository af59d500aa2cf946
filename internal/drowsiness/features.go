package drowsiness

import "gonum.org/v1/gonum/floats"

// Canonical 68-point facial landmark layout.
const (
	NumLandmarks  = 68
	LeftEyeStart  = 36
	RightEyeStart = 42
	MouthStart    = 48
	MouthEnd      = 68

	// horizontal spans shorter than this are treated as collapsed detections
	degenerateSpan = 1e-6
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LandmarkSet is ordered by the canonical landmark index.
type LandmarkSet []Point

// FeatureVector holds the per-frame eye and mouth aspect ratios.
type FeatureVector struct {
	AvgEAR   float64 `json:"avgEar"`
	LeftEAR  float64 `json:"leftEar"`
	RightEAR float64 `json:"rightEar"`
	MAR      float64 `json:"mar"`
}

func dist(a, b Point) float64 {
	return floats.Distance([]float64{a.X, a.Y}, []float64{b.X, b.Y}, 2)
}

// EyeAspectRatio expects the six contour points of one eye in canonical order.
func EyeAspectRatio(p []Point) float64 {
	h := dist(p[0], p[3])
	if h < degenerateSpan {
		return 0
	}
	return (dist(p[1], p[5]) + dist(p[2], p[4])) / (2 * h)
}

// MouthAspectRatio expects the twenty mouth contour points in canonical order.
func MouthAspectRatio(q []Point) float64 {
	h := dist(q[0], q[6])
	if h < degenerateSpan {
		return 0
	}
	return (dist(q[2], q[10]) + dist(q[4], q[8])) / (2 * h)
}

func ExtractFeatures(lm LandmarkSet) (FeatureVector, error) {
	if len(lm) < NumLandmarks {
		return FeatureVector{}, &DataError{Got: len(lm), Want: NumLandmarks}
	}

	left := EyeAspectRatio(lm[LeftEyeStart:RightEyeStart])
	right := EyeAspectRatio(lm[RightEyeStart:MouthStart])

	return FeatureVector{
		AvgEAR:   (left + right) / 2,
		LeftEAR:  left,
		RightEAR: right,
		MAR:      MouthAspectRatio(lm[MouthStart:MouthEnd]),
	}, nil
}
