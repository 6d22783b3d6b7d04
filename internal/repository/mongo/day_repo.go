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

const dayCollectionName = "program_days"

// mongoDayRepository implements repository.DayRepository
type mongoDayRepository struct {
	collection *mongo.Collection
}

// NewMongoDayRepository creates a new Day repository backed by MongoDB.
func NewMongoDayRepository(db *mongo.Database) repository.DayRepository {
	return &mongoDayRepository{
		collection: db.Collection(dayCollectionName),
	}
}

// Create inserts a new program day.
func (r *mongoDayRepository) Create(ctx context.Context, day *domain.Day) (primitive.ObjectID, error) {
	if day.ProgramID == primitive.NilObjectID || day.Title == "" {
		return primitive.NilObjectID, errors.New("day requires programId and title")
	}

	day.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	day.CreatedAt = now
	day.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, day)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted day ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single day by its ID.
func (r *mongoDayRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Day, error) {
	var day domain.Day
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&day)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &day, nil
}

// GetByProgramID retrieves all days of a program ordered by dayOrder.
func (r *mongoDayRepository) GetByProgramID(ctx context.Context, programID primitive.ObjectID) ([]domain.Day, error) {
	var days []domain.Day
	filter := bson.M{"programId": programID}
	findOptions := options.Find().SetSort(bson.D{{Key: "dayOrder", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &days); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return days, nil
}

// Update modifies the title and note of a day.
func (r *mongoDayRepository) Update(ctx context.Context, day *domain.Day) error {
	if day.ID == primitive.NilObjectID {
		return errors.New("day ID is required for update")
	}

	update := bson.M{
		"$set": bson.M{
			"title":     day.Title,
			"note":      day.Note,
			"updatedAt": time.Now().UTC(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": day.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// UpdateOrder rewrites only the dayOrder integer. Reordering is a pairwise
// swap at the service layer; no other rows are touched.
func (r *mongoDayRepository) UpdateOrder(ctx context.Context, id primitive.ObjectID, order int) error {
	update := bson.M{
		"$set": bson.M{
			"dayOrder":  order,
			"updatedAt": time.Now().UTC(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a day.
func (r *mongoDayRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureDayIndexes creates necessary indexes for the program_days collection.
func EnsureDayIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "programId", Value: 1}, {Key: "dayOrder", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Non-fatal.
	}
}
