package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutEventType enumerates the session lifecycle events we persist.
type WorkoutEventType string

const (
	EventSessionStarted  WorkoutEventType = "session_started"
	EventSessionFinished WorkoutEventType = "session_finished"
)

// WorkoutEvent is an append-only record of a session lifecycle event. Finish
// events carry the computed duration so completion history can be read without
// joining sessions.
type WorkoutEvent struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type            WorkoutEventType   `bson:"type" json:"type"`
	UserID          primitive.ObjectID `bson:"userId" json:"userId"`
	SessionID       primitive.ObjectID `bson:"sessionId" json:"sessionId"`
	ProgramID       primitive.ObjectID `bson:"programId" json:"programId"`
	DayID           primitive.ObjectID `bson:"dayId" json:"dayId"`
	DurationMinutes *int               `bson:"durationMinutes,omitempty" json:"durationMinutes,omitempty"`
	Timestamp       time.Time          `bson:"timestamp" json:"timestamp"`
}
