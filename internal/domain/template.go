package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Template is an admin-authored, reusable program blueprint. Days and items
// are embedded: authoring always reads/writes the whole document, and the
// assign-template copy reads it in one round trip.
type Template struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AuthorID    primitive.ObjectID `bson:"authorId" json:"authorId"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Weeks       int                `bson:"weeks" json:"weeks"`
	IsPublished bool               `bson:"isPublished" json:"isPublished"`
	Days        []TemplateDay      `bson:"days,omitempty" json:"days,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// TemplateDay mirrors Day inside the template document.
type TemplateDay struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title    string             `bson:"title" json:"title"`
	Note     string             `bson:"note,omitempty" json:"note,omitempty"`
	DayOrder int                `bson:"dayOrder" json:"dayOrder"`
	Items    []TemplateItem     `bson:"items,omitempty" json:"items,omitempty"`
}

// TemplateItem mirrors Item inside the template document.
type TemplateItem struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	TargetSets   int                `bson:"targetSets" json:"targetSets"`
	TargetReps   string             `bson:"targetReps" json:"targetReps"`
	Seconds      *int               `bson:"seconds,omitempty" json:"seconds,omitempty"`
	WeightKg     *float64           `bson:"weightKg,omitempty" json:"weightKg,omitempty"`
	RestSeconds  int                `bson:"restSeconds" json:"restSeconds"`
	CoachNotes   string             `bson:"coachNotes,omitempty" json:"coachNotes,omitempty"`
	VideoURL     string             `bson:"videoUrl,omitempty" json:"videoUrl,omitempty"`
	OrderInDay   int                `bson:"orderInDay" json:"orderInDay"`
	Unilateral   bool               `bson:"unilateral,omitempty" json:"unilateral,omitempty"`
	RepsPerSide  *int               `bson:"repsPerSide,omitempty" json:"repsPerSide,omitempty"`
	Alternatives []Alternative      `bson:"alternatives,omitempty" json:"alternatives,omitempty"`
}
