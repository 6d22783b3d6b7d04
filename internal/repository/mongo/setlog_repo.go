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

const setLogCollectionName = "set_logs"

// mongoSetLogRepository implements repository.SetLogRepository
type mongoSetLogRepository struct {
	collection *mongo.Collection
}

// NewMongoSetLogRepository creates a new SetLog repository backed by MongoDB.
func NewMongoSetLogRepository(db *mongo.Database) repository.SetLogRepository {
	return &mongoSetLogRepository{
		collection: db.Collection(setLogCollectionName),
	}
}

func setLogKey(log *domain.SetLog) bson.M {
	return bson.M{
		"sessionId": log.SessionID,
		"itemId":    log.ItemID,
		"setNumber": log.SetNumber,
	}
}

// Upsert writes the log keyed on the unique (session, item, set) triple. A
// repeated completion overwrites the previous values; the triple never gains
// a second row.
func (r *mongoSetLogRepository) Upsert(ctx context.Context, log *domain.SetLog) error {
	if log.SessionID == primitive.NilObjectID || log.ItemID == primitive.NilObjectID || log.SetNumber <= 0 {
		return errors.New("set log requires sessionId, itemId, and a positive setNumber")
	}
	if log.MarkedDoneAt.IsZero() {
		log.MarkedDoneAt = time.Now().UTC()
	}

	update := bson.M{
		"$set": bson.M{
			"repsDone":     log.RepsDone,
			"secondsDone":  log.SecondsDone,
			"weightKgDone": log.WeightKgDone,
			"markedDoneAt": log.MarkedDoneAt,
		},
		"$setOnInsert": setLogKey(log),
	}
	_, err := r.collection.UpdateOne(ctx, setLogKey(log), update, options.Update().SetUpsert(true))
	if err != nil {
		// Two concurrent upserts can both miss the match and race on the
		// insert; the unique index turns the loser into a duplicate error.
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrConflict
		}
		return err
	}
	return nil
}

// Insert adds a new row without upsert semantics (fallback path).
func (r *mongoSetLogRepository) Insert(ctx context.Context, log *domain.SetLog) error {
	log.ID = primitive.NewObjectID()
	if log.MarkedDoneAt.IsZero() {
		log.MarkedDoneAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, log)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrConflict
		}
		return err
	}
	return nil
}

// Update rewrites the done-values of an existing row (fallback path).
func (r *mongoSetLogRepository) Update(ctx context.Context, log *domain.SetLog) error {
	update := bson.M{
		"$set": bson.M{
			"repsDone":     log.RepsDone,
			"secondsDone":  log.SecondsDone,
			"weightKgDone": log.WeightKgDone,
			"markedDoneAt": log.MarkedDoneAt,
		},
	}
	result, err := r.collection.UpdateOne(ctx, setLogKey(log), update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Get retrieves one log row by its uniqueness triple.
func (r *mongoSetLogRepository) Get(ctx context.Context, sessionID, itemID primitive.ObjectID, setNumber int) (*domain.SetLog, error) {
	var log domain.SetLog
	filter := bson.M{"sessionId": sessionID, "itemId": itemID, "setNumber": setNumber}
	err := r.collection.FindOne(ctx, filter).Decode(&log)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &log, nil
}

// ListBySession retrieves all logs of a session ordered by item and set.
func (r *mongoSetLogRepository) ListBySession(ctx context.Context, sessionID primitive.ObjectID) ([]domain.SetLog, error) {
	return r.list(ctx, bson.M{"sessionId": sessionID})
}

// ListBySessionAndItem retrieves the logs of one exercise within a session.
func (r *mongoSetLogRepository) ListBySessionAndItem(ctx context.Context, sessionID, itemID primitive.ObjectID) ([]domain.SetLog, error) {
	return r.list(ctx, bson.M{"sessionId": sessionID, "itemId": itemID})
}

func (r *mongoSetLogRepository) list(ctx context.Context, filter bson.M) ([]domain.SetLog, error) {
	var logs []domain.SetLog
	findOptions := options.Find().SetSort(bson.D{{Key: "itemId", Value: 1}, {Key: "setNumber", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

// EnsureSetLogIndexes creates necessary indexes for the set_logs collection.
// The unique triple index is the core invariant of set logging.
func EnsureSetLogIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sessionId", Value: 1}, {Key: "itemId", Value: 1}, {Key: "setNumber", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Non-fatal.
	}
}
