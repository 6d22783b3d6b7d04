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

const itemCollectionName = "program_items"

// mongoItemRepository implements repository.ItemRepository
type mongoItemRepository struct {
	collection *mongo.Collection
}

// NewMongoItemRepository creates a new Item repository backed by MongoDB.
func NewMongoItemRepository(db *mongo.Database) repository.ItemRepository {
	return &mongoItemRepository{
		collection: db.Collection(itemCollectionName),
	}
}

// Create inserts a new item.
func (r *mongoItemRepository) Create(ctx context.Context, item *domain.Item) (primitive.ObjectID, error) {
	if item.DayID == primitive.NilObjectID || item.ProgramID == primitive.NilObjectID || item.Name == "" {
		return primitive.NilObjectID, errors.New("item requires dayId, programId, and name")
	}
	if item.TargetSets <= 0 {
		return primitive.NilObjectID, errors.New("item requires a positive targetSets")
	}

	item.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	for i := range item.Alternatives {
		if item.Alternatives[i].ID == primitive.NilObjectID {
			item.Alternatives[i].ID = primitive.NewObjectID()
		}
	}

	result, err := r.collection.InsertOne(ctx, item)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted item ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single item by its ID.
func (r *mongoItemRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Item, error) {
	var item domain.Item
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// GetByDayID retrieves all items of a day ordered by orderInDay.
func (r *mongoItemRepository) GetByDayID(ctx context.Context, dayID primitive.ObjectID) ([]domain.Item, error) {
	var items []domain.Item
	filter := bson.M{"dayId": dayID}
	findOptions := options.Find().SetSort(bson.D{{Key: "orderInDay", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Update rewrites the descriptive fields of an item. Day/program links and
// orderInDay are not changed here.
func (r *mongoItemRepository) Update(ctx context.Context, item *domain.Item) error {
	if item.ID == primitive.NilObjectID {
		return errors.New("item ID is required for update")
	}

	update := bson.M{
		"$set": bson.M{
			"name":        item.Name,
			"targetSets":  item.TargetSets,
			"targetReps":  item.TargetReps,
			"seconds":     item.Seconds,
			"weightKg":    item.WeightKg,
			"restSeconds": item.RestSeconds,
			"coachNotes":  item.CoachNotes,
			"videoUrl":    item.VideoURL,
			"unilateral":  item.Unilateral,
			"repsPerSide": item.RepsPerSide,
			"updatedAt":   time.Now().UTC(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": item.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// UpdateOrder rewrites only the orderInDay integer (pairwise swap support).
func (r *mongoItemRepository) UpdateOrder(ctx context.Context, id primitive.ObjectID, order int) error {
	update := bson.M{
		"$set": bson.M{
			"orderInDay": order,
			"updatedAt":  time.Now().UTC(),
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

// UpdateDefaultWeight rewrites the item's shared default weight column.
func (r *mongoItemRepository) UpdateDefaultWeight(ctx context.Context, id primitive.ObjectID, weightKg float64) error {
	update := bson.M{
		"$set": bson.M{
			"weightKg":  weightKg,
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

// UpdateVideoURL links a (confirmed) demo video to the item.
func (r *mongoItemRepository) UpdateVideoURL(ctx context.Context, id primitive.ObjectID, videoURL string) error {
	update := bson.M{
		"$set": bson.M{
			"videoUrl":  videoURL,
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

// AddAlternative pushes a substitute exercise onto the item's alternatives array.
func (r *mongoItemRepository) AddAlternative(ctx context.Context, itemID primitive.ObjectID, alt domain.Alternative) error {
	if alt.ID == primitive.NilObjectID {
		alt.ID = primitive.NewObjectID()
	}
	update := bson.M{
		"$push": bson.M{"alternatives": alt},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": itemID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// RemoveAlternative pulls a substitute exercise out of the alternatives array.
func (r *mongoItemRepository) RemoveAlternative(ctx context.Context, itemID, altID primitive.ObjectID) error {
	update := bson.M{
		"$pull": bson.M{"alternatives": bson.M{"_id": altID}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": itemID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes an item.
func (r *mongoItemRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureItemIndexes creates necessary indexes for the program_items collection.
func EnsureItemIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "dayId", Value: 1}, {Key: "orderInDay", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "programId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Non-fatal.
	}
}
