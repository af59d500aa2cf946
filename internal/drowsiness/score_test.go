package drowsiness

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
)

func TestComputeScore(t *testing.T) {
	t.Parallel()

	approx := cmpopts.EquateApprox(0, 0.01)

	tests := []struct {
		name          string
		ear, mar      float64
		drowsyCounter int
		want          Score
	}{
		{
			name: "wide awake caps the ear score",
			ear:  0.35, mar: 0.1,
			want: Score{Alertness: 70 + 0.3*(100-0.1/0.6*100), EyeClosure: 0},
		},
		{
			name: "drowsy penalty",
			ear:  0.1, mar: 0.1, drowsyCounter: 5,
			want: Score{Alertness: (0.1/0.3*100)*0.7 + (100-0.1/0.6*100)*0.3 - 10, EyeClosure: 66.6667},
		},
		{
			name: "wide mouth floors the mar score",
			ear:  0.3, mar: 1.2,
			want: Score{Alertness: 70, EyeClosure: 0},
		},
		{
			name: "penalty floors at zero",
			ear:  0.05, mar: 0.6, drowsyCounter: 40,
			want: Score{Alertness: 0, EyeClosure: 83.3333},
		},
		{
			name: "closed eyes",
			ear:  0, mar: 0,
			want: Score{Alertness: 30, EyeClosure: 100},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ComputeScore(tt.ear, tt.mar, 0.6, tt.drowsyCounter)
			if diff := cmp.Diff(tt.want, got, approx); diff != "" {
				t.Errorf("ComputeScore mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComputeScore_ScenarioA(t *testing.T) {
	t.Parallel()

	got := ComputeScore(0.35, 0.1, 0.6, 0)
	assert.InDelta(t, 95.0, got.Alertness, 0.01)
	assert.Equal(t, 0.0, got.EyeClosure)
}

func TestComputeScore_Idempotent(t *testing.T) {
	t.Parallel()

	first := ComputeScore(0.17, 0.42, 0.6, 3)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ComputeScore(0.17, 0.42, 0.6, 3))
	}
}
