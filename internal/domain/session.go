package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session is one workout attempt, scoped to (user, program, day). At most one
// open session (EndedAt == nil) exists per (user, day); bootstrap finds the
// open one before creating a new one.
type Session struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID           primitive.ObjectID   `bson:"userId" json:"userId"`
	ProgramID        primitive.ObjectID   `bson:"programId" json:"programId"`
	DayID            primitive.ObjectID   `bson:"dayId" json:"dayId"`
	StartedAt        time.Time            `bson:"startedAt" json:"startedAt"`
	EndedAt          *time.Time           `bson:"endedAt" json:"endedAt,omitempty"` // Stored as explicit null while open (partial unique index matches on it)
	DurationMinutes  *int                 `bson:"durationMinutes,omitempty" json:"durationMinutes,omitempty"`
	LastActivityAt   time.Time            `bson:"lastActivityAt" json:"lastActivityAt"` // Advisory liveness stamp, not a lease
	CompletedItemIDs []primitive.ObjectID `bson:"completedItemIds,omitempty" json:"completedItemIds,omitempty"`
}

// IsOpen reports whether the session has not been finished yet.
func (s *Session) IsOpen() bool {
	return s.EndedAt == nil
}

// SetLog records one completed set. The (SessionID, ItemID, SetNumber) triple
// is unique; writers upsert on it.
type SetLog struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID    primitive.ObjectID `bson:"sessionId" json:"sessionId"`
	ItemID       primitive.ObjectID `bson:"itemId" json:"itemId"`
	SetNumber    int                `bson:"setNumber" json:"setNumber"`
	RepsDone     *int               `bson:"repsDone,omitempty" json:"repsDone,omitempty"`
	SecondsDone  *int               `bson:"secondsDone,omitempty" json:"secondsDone,omitempty"`
	WeightKgDone *float64           `bson:"weightKgDone,omitempty" json:"weightKgDone,omitempty"`
	MarkedDoneAt time.Time          `bson:"markedDoneAt" json:"markedDoneAt"`
}

// ExerciseNote aggregates free-text notes, RPE and RIR for one (session, item)
// pair. RPEHistory is append-only: every RPE write adds an entry.
type ExerciseNote struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID  primitive.ObjectID `bson:"sessionId" json:"sessionId"`
	ItemID     primitive.ObjectID `bson:"itemId" json:"itemId"`
	Notes      string             `bson:"notes,omitempty" json:"notes,omitempty"`
	RPE        *int               `bson:"rpe,omitempty" json:"rpe,omitempty"` // 1-10
	RIR        *int               `bson:"rir,omitempty" json:"rir,omitempty"` // 0-10
	RPEHistory []int              `bson:"rpeHistory,omitempty" json:"rpeHistory,omitempty"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// SetWeightPreference remembers the last weight a user chose for one specific
// set slot of an item. This is how set 2 keeps its 4 kg even when sets 1 and 3
// use 2 kg. Unique on (UserID, ItemID, SetNumber).
type SetWeightPreference struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	ItemID    primitive.ObjectID `bson:"itemId" json:"itemId"`
	SetNumber int                `bson:"setNumber" json:"setNumber"`
	WeightKg  float64            `bson:"weightKg" json:"weightKg"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
