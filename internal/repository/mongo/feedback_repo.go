package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/domain"
	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const feedbackCollectionName = "progression_feedback"

// mongoFeedbackRepository implements repository.FeedbackRepository
type mongoFeedbackRepository struct {
	collection *mongo.Collection
}

// NewMongoFeedbackRepository creates a new ProgressionFeedback repository
// backed by MongoDB.
func NewMongoFeedbackRepository(db *mongo.Database) repository.FeedbackRepository {
	return &mongoFeedbackRepository{
		collection: db.Collection(feedbackCollectionName),
	}
}

// Get retrieves the gating state for one (user, item) pair.
func (r *mongoFeedbackRepository) Get(ctx context.Context, userID, itemID primitive.ObjectID) (*domain.ProgressionFeedback, error) {
	var fb domain.ProgressionFeedback
	filter := bson.M{"userId": userID, "itemId": itemID}
	err := r.collection.FindOne(ctx, filter).Decode(&fb)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &fb, nil
}

// Upsert writes the gating state keyed on (userId, itemId). ProposedWeightKg
// is always written, so a nil value clears a pending proposal.
func (r *mongoFeedbackRepository) Upsert(ctx context.Context, fb *domain.ProgressionFeedback) error {
	if fb.UserID == primitive.NilObjectID || fb.ItemID == primitive.NilObjectID {
		return errors.New("progression feedback requires userId and itemId")
	}

	filter := bson.M{"userId": fb.UserID, "itemId": fb.ItemID}
	update := bson.M{
		"$set": bson.M{
			"lastSignal":       fb.LastSignal,
			"proposedWeightKg": fb.ProposedWeightKg,
			"updatedAt":        time.Now().UTC(),
		},
		"$setOnInsert": filter,
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrConflict
		}
		return err
	}
	return nil
}

// EnsureFeedbackIndexes creates necessary indexes for the
// progression_feedback collection.
func EnsureFeedbackIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "itemId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Non-fatal.
	}
}
