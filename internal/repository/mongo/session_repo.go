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

const sessionCollectionName = "sessions"

// mongoSessionRepository implements repository.SessionRepository
type mongoSessionRepository struct {
	collection *mongo.Collection
}

// NewMongoSessionRepository creates a new Session repository backed by MongoDB.
func NewMongoSessionRepository(db *mongo.Database) repository.SessionRepository {
	return &mongoSessionRepository{
		collection: db.Collection(sessionCollectionName),
	}
}

// Create inserts a new open session. The partial unique index on
// (userId, dayId, endedAt: null) rejects a second open session for the same
// day; the duplicate is mapped to ErrConflict so the caller can re-read the
// winner.
func (r *mongoSessionRepository) Create(ctx context.Context, session *domain.Session) (primitive.ObjectID, error) {
	if session.UserID == primitive.NilObjectID || session.ProgramID == primitive.NilObjectID || session.DayID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("session requires userId, programId, and dayId")
	}

	session.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	if session.StartedAt.IsZero() {
		session.StartedAt = now
	}
	session.LastActivityAt = now
	session.EndedAt = nil

	result, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrConflict
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted session ID")
	}
	return insertedID, nil
}

// GetByID retrieves a session by its ID.
func (r *mongoSessionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Session, error) {
	var session domain.Session
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// FindOpen returns the open session for (user, day), if any.
func (r *mongoSessionRepository) FindOpen(ctx context.Context, userID, dayID primitive.ObjectID) (*domain.Session, error) {
	var session domain.Session
	filter := bson.M{"userId": userID, "dayId": dayID, "endedAt": nil}
	err := r.collection.FindOne(ctx, filter).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// ListRecentCompleted returns finished sessions for (user, day), newest first.
func (r *mongoSessionRepository) ListRecentCompleted(ctx context.Context, userID, dayID primitive.ObjectID, limit int) ([]domain.Session, error) {
	var sessions []domain.Session
	filter := bson.M{"userId": userID, "dayId": dayID, "endedAt": bson.M{"$ne": nil}}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "endedAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Close stamps endedAt and the computed duration. Closing an already closed
// session is a no-op match failure (ErrNotFound) by design of the filter.
func (r *mongoSessionRepository) Close(ctx context.Context, id primitive.ObjectID, endedAt time.Time, durationMinutes int) error {
	filter := bson.M{"_id": id, "endedAt": nil}
	update := bson.M{
		"$set": bson.M{
			"endedAt":         endedAt,
			"durationMinutes": durationMinutes,
			"lastActivityAt":  endedAt,
		},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Touch refreshes the advisory liveness stamp.
func (r *mongoSessionRepository) Touch(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	update := bson.M{"$set": bson.M{"lastActivityAt": at}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// MarkItemCompleted adds itemID to completedItemIds. $addToSet leaves the
// document unmodified when the id is already present, which is exactly the
// fire-exactly-once discrimination the service needs.
func (r *mongoSessionRepository) MarkItemCompleted(ctx context.Context, sessionID, itemID primitive.ObjectID) (bool, error) {
	update := bson.M{"$addToSet": bson.M{"completedItemIds": itemID}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": sessionID}, update)
	if err != nil {
		return false, err
	}
	if result.MatchedCount == 0 {
		return false, repository.ErrNotFound
	}
	return result.ModifiedCount > 0, nil
}

// EnsureSessionIndexes creates necessary indexes for the sessions collection.
// The partial unique index enforces at most one open session per (user, day).
func EnsureSessionIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "dayId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"endedAt": bson.M{"$type": "null"}}),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "endedAt", Value: -1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Non-fatal.
	}
}
