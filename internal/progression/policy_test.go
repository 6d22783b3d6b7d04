package progression_test

import (
	"testing"

	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/progression"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjustReps_PolicyTable(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		rpe      int
		expected int
	}{
		{"rpe 4 adds a rep", 10, 4, 11},
		{"rpe 6 adds a rep", 10, 6, 11},
		{"rpe 7 is target zone", 10, 7, 10},
		{"rpe 8 is target zone", 10, 8, 10},
		{"rpe 9 drops a rep", 10, 9, 9},
		{"rpe 10 drops two reps", 10, 10, 8},

		{"rpe 5 capped at 15", 15, 5, 15},
		{"rpe 4 caps crossing 15", 14, 4, 15},
		{"rpe 6 capped at 12", 12, 6, 12},
		{"rpe 6 above its cap stays put", 14, 6, 14},
		{"rpe 9 floored at 5", 5, 9, 5},
		{"rpe 10 floors crossing 3", 4, 10, 3},
		{"rpe 10 at floor stays put", 3, 10, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := progression.AdjustReps(tt.current, tt.rpe)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestAdjustReps_InvalidRPE(t *testing.T) {
	for _, rpe := range []int{0, -1, 11} {
		got, err := progression.AdjustReps(10, rpe)
		require.ErrorIs(t, err, progression.ErrInvalidRPE)
		assert.Equal(t, 10, got, "invalid rpe must leave reps unchanged")
	}
}

func TestWeightStep(t *testing.T) {
	tests := []struct {
		name     string
		weightKg float64
		expected float64
	}{
		{"light weight clamps to minimum", 5, 0.25},
		{"2% of 50kg rounds to 1kg", 50, 1.0},
		{"2% of 60kg is 1.2, rounds to 1.25", 60, 1.25},
		{"2% of 100kg is 2kg", 100, 2.0},
		{"heavy weight clamps to maximum", 200, 2.5},
		{"zero weight still steps by minimum", 0, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, progression.WeightStep(tt.weightKg), 1e-9)
		})
	}
}

func TestSuggestWeight(t *testing.T) {
	assert.InDelta(t, 51.0, progression.SuggestWeight(50, progression.FeedbackTooEasy), 1e-9)
	assert.InDelta(t, 49.0, progression.SuggestWeight(50, progression.FeedbackTooHard), 1e-9)
	assert.InDelta(t, 50.0, progression.SuggestWeight(50, progression.FeedbackJustRight), 1e-9)
	assert.InDelta(t, 0, progression.SuggestWeight(0.1, progression.FeedbackTooHard), 1e-9,
		"suggestion never goes below zero")
}

func TestFeedbackValid(t *testing.T) {
	assert.True(t, progression.FeedbackTooEasy.Valid())
	assert.True(t, progression.FeedbackJustRight.Valid())
	assert.True(t, progression.FeedbackTooHard.Valid())
	assert.False(t, progression.Feedback("way_too_hard").Valid())
	assert.False(t, progression.Feedback("").Valid())
}
