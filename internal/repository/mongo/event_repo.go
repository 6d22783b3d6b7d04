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

const eventCollectionName = "workout_events"

// mongoEventRepository implements repository.EventRepository
type mongoEventRepository struct {
	collection *mongo.Collection
}

// NewMongoEventRepository creates a new WorkoutEvent repository backed by MongoDB.
func NewMongoEventRepository(db *mongo.Database) repository.EventRepository {
	return &mongoEventRepository{
		collection: db.Collection(eventCollectionName),
	}
}

// Insert appends a lifecycle event.
func (r *mongoEventRepository) Insert(ctx context.Context, event *domain.WorkoutEvent) (primitive.ObjectID, error) {
	if event.Type == "" || event.UserID == primitive.NilObjectID || event.SessionID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("workout event requires type, userId, and sessionId")
	}

	event.ID = primitive.NewObjectID()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, event)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted event ID")
	}
	return insertedID, nil
}

// ListByUser retrieves a user's events, newest first.
func (r *mongoEventRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]domain.WorkoutEvent, error) {
	var events []domain.WorkoutEvent
	filter := bson.M{"userId": userID}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// EnsureEventIndexes creates necessary indexes for the workout_events collection.
func EnsureEventIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "sessionId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Non-fatal.
	}
}
