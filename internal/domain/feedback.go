package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgressionFeedback keeps the gating state of the weight-suggestion path for
// one (user, item) pair: the last coarse signal reported, and the pending
// proposal once the same signal arrived twice in a row. The proposal is only
// applied on an explicit confirm.
type ProgressionFeedback struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID           primitive.ObjectID `bson:"userId" json:"userId"`
	ItemID           primitive.ObjectID `bson:"itemId" json:"itemId"`
	LastSignal       string             `bson:"lastSignal" json:"lastSignal"`
	ProposedWeightKg *float64           `bson:"proposedWeightKg,omitempty" json:"proposedWeightKg,omitempty"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}
