package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Upload stores metadata about a demo video uploaded by an admin for an item
// or alternative. The actual file resides in S3; ItemID points at the exercise
// the video demonstrates.
type Upload struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ItemID      primitive.ObjectID `bson:"itemId" json:"itemId"`
	UploaderID  primitive.ObjectID `bson:"uploaderId" json:"uploaderId"`
	S3ObjectKey string             `bson:"s3ObjectKey" json:"-"` // Bucket key, internal use only
	FileName    string             `bson:"fileName" json:"fileName"`
	ContentType string             `bson:"contentType" json:"contentType"`
	Size        int64              `bson:"size" json:"size"`
	UploadedAt  time.Time          `bson:"uploadedAt" json:"uploadedAt"`
}
