// Package progression holds the auto-progression policy tables. Everything in
// here is a heuristic nudge, not a guarantee: callers treat the output as a
// low-confidence suggestion and never fail a workout over it.
package progression

import (
	"errors"
	"math"
)

// Rep caps and floors of the RPE table. Adjustable policy, not invariants.
const (
	easyRepCap     = 15 // RPE <= 5
	moderateRepCap = 12 // RPE == 6
	hardRepFloor   = 5  // RPE == 9
	maxRepFloor    = 3  // RPE == 10
)

// Weight-step policy constants.
const (
	weightStepFraction = 0.02
	weightStepMinKg    = 0.25
	weightStepMaxKg    = 2.5
	weightStepRounding = 0.25
)

var ErrInvalidRPE = errors.New("rpe must be between 1 and 10")

// AdjustReps applies the RPE policy table to the current rep target:
//
//	RPE <= 5  +1 rep, capped at 15
//	RPE == 6  +1 rep, capped at 12
//	RPE 7-8   no change (target zone)
//	RPE == 9  -1 rep, floored at 5
//	RPE == 10 -2 reps, floored at 3
func AdjustReps(currentReps, rpe int) (int, error) {
	if rpe < 1 || rpe > 10 {
		return currentReps, ErrInvalidRPE
	}

	switch {
	case rpe <= 5:
		return increaseCapped(currentReps, 1, easyRepCap), nil
	case rpe == 6:
		return increaseCapped(currentReps, 1, moderateRepCap), nil
	case rpe <= 8:
		return currentReps, nil
	case rpe == 9:
		return decreaseFloored(currentReps, 1, hardRepFloor), nil
	default:
		return decreaseFloored(currentReps, 2, maxRepFloor), nil
	}
}

func increaseCapped(current, by, limit int) int {
	if current >= limit {
		return current
	}
	next := current + by
	if next > limit {
		return limit
	}
	return next
}

func decreaseFloored(current, by, floor int) int {
	if current <= floor {
		return current
	}
	next := current - by
	if next < floor {
		return floor
	}
	return next
}

// Feedback is the coarse three-way exertion signal driving the gated weight
// suggestion path.
type Feedback string

const (
	FeedbackTooEasy   Feedback = "too_easy"
	FeedbackJustRight Feedback = "just_right"
	FeedbackTooHard   Feedback = "too_hard"
)

// Valid reports whether the feedback value is one of the three known signals.
func (f Feedback) Valid() bool {
	return f == FeedbackTooEasy || f == FeedbackJustRight || f == FeedbackTooHard
}

// WeightStep computes the adjustment step for a weight suggestion: 2% of the
// current weight, clamped to 0.25..2.5 kg, rounded to the nearest 0.25 kg.
func WeightStep(currentKg float64) float64 {
	step := currentKg * weightStepFraction
	if step < weightStepMinKg {
		step = weightStepMinKg
	}
	if step > weightStepMaxKg {
		step = weightStepMaxKg
	}
	return math.Round(step/weightStepRounding) * weightStepRounding
}

// SuggestWeight applies the feedback direction to the current weight. A
// just_right signal returns the weight unchanged. The result never goes below
// zero.
func SuggestWeight(currentKg float64, feedback Feedback) float64 {
	switch feedback {
	case FeedbackTooEasy:
		return currentKg + WeightStep(currentKg)
	case FeedbackTooHard:
		next := currentKg - WeightStep(currentKg)
		if next < 0 {
			return 0
		}
		return next
	default:
		return currentKg
	}
}
