package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgramStatus type for program lifecycle
type ProgramStatus string

const (
	ProgramStatusActive    ProgramStatus = "active"
	ProgramStatusCompleted ProgramStatus = "completed"
	ProgramStatusArchived  ProgramStatus = "archived"
)

// Program is the assignment of a Template to one client. It is created by the
// admin "assign template" action and is never hard-deleted: deactivation flips
// IsActive and Status instead.
type Program struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TemplateID    primitive.ObjectID `bson:"templateId" json:"templateId"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"` // The client the program belongs to
	StartDate     time.Time          `bson:"startDate" json:"startDate"`
	DurationWeeks int                `bson:"durationWeeks" json:"durationWeeks"`
	IsActive      bool               `bson:"isActive" json:"isActive"`
	Status        ProgramStatus      `bson:"status" json:"status"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Day is one training day within a program, ordered by DayOrder.
type Day struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProgramID primitive.ObjectID `bson:"programId" json:"programId"`
	Title     string             `bson:"title" json:"title"`
	Note      string             `bson:"note,omitempty" json:"note,omitempty"`
	DayOrder  int                `bson:"dayOrder" json:"dayOrder"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// AlternativeDifficulty grades a substitute exercise against its primary.
type AlternativeDifficulty string

const (
	AlternativeEasier AlternativeDifficulty = "easier"
	AlternativeSame   AlternativeDifficulty = "same"
	AlternativeHarder AlternativeDifficulty = "harder"
)

// Alternative is a substitute exercise tied to a primary item.
type Alternative struct {
	ID         primitive.ObjectID    `bson:"_id,omitempty" json:"id"`
	Name       string                `bson:"name" json:"name"`
	CoachNotes string                `bson:"coachNotes,omitempty" json:"coachNotes,omitempty"`
	VideoURL   string                `bson:"videoUrl,omitempty" json:"videoUrl,omitempty"`
	Difficulty AlternativeDifficulty `bson:"difficulty" json:"difficulty"`
}

// Item is one exercise entry within a training day.
type Item struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DayID       primitive.ObjectID `bson:"dayId" json:"dayId"`
	ProgramID   primitive.ObjectID `bson:"programId" json:"programId"` // Denormalized for ownership checks
	Name        string             `bson:"name" json:"name"`
	TargetSets  int                `bson:"targetSets" json:"targetSets"`
	TargetReps  string             `bson:"targetReps" json:"targetReps"` // Free text, e.g. "8-12"
	Seconds     *int               `bson:"seconds,omitempty" json:"seconds,omitempty"`
	WeightKg    *float64           `bson:"weightKg,omitempty" json:"weightKg,omitempty"`
	RestSeconds int                `bson:"restSeconds" json:"restSeconds"`
	CoachNotes  string             `bson:"coachNotes,omitempty" json:"coachNotes,omitempty"`
	VideoURL    string             `bson:"videoUrl,omitempty" json:"videoUrl,omitempty"`
	OrderInDay  int                `bson:"orderInDay" json:"orderInDay"`

	// Unilateral exercises track reps per side; TotalReps is derived.
	Unilateral  bool `bson:"unilateral,omitempty" json:"unilateral,omitempty"`
	RepsPerSide *int `bson:"repsPerSide,omitempty" json:"repsPerSide,omitempty"`

	Alternatives []Alternative `bson:"alternatives,omitempty" json:"alternatives,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ExecutionMode is the tagged variant behind the nullable seconds/weightKg
// columns. Exactly one mode applies to an item at a time.
type ExecutionMode string

const (
	ModeWeighted   ExecutionMode = "weighted"
	ModeTimed      ExecutionMode = "timed"
	ModeBodyweight ExecutionMode = "bodyweight"
)

// Mode derives the execution mode from the stored columns. This is the single
// place the nullable-columns representation is interpreted; everything else
// switches on the returned variant.
func (i *Item) Mode() ExecutionMode {
	if i.Seconds != nil && *i.Seconds > 0 {
		return ModeTimed
	}
	if i.WeightKg != nil && *i.WeightKg > 0 {
		return ModeWeighted
	}
	return ModeBodyweight
}

// IsTimed reports whether the item is time-based (a missing rep count is
// tolerated on set completion only for timed items).
func (i *Item) IsTimed() bool {
	return i.Mode() == ModeTimed
}

// TotalReps returns the derived total rep count for unilateral items.
func (i *Item) TotalReps() *int {
	if !i.Unilateral || i.RepsPerSide == nil {
		return nil
	}
	total := *i.RepsPerSide * 2
	return &total
}

// DefaultWeightKg returns the item's default weight or 0 when bodyweight/timed.
func (i *Item) DefaultWeightKg() float64 {
	if i.WeightKg == nil {
		return 0
	}
	return *i.WeightKg
}
