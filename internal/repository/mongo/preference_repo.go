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

const preferenceCollectionName = "set_weight_prefs"

// mongoPreferenceRepository implements repository.PreferenceRepository
type mongoPreferenceRepository struct {
	collection *mongo.Collection
}

// NewMongoPreferenceRepository creates a new SetWeightPreference repository
// backed by MongoDB.
func NewMongoPreferenceRepository(db *mongo.Database) repository.PreferenceRepository {
	return &mongoPreferenceRepository{
		collection: db.Collection(preferenceCollectionName),
	}
}

// Upsert writes the preference keyed on (userId, itemId, setNumber).
func (r *mongoPreferenceRepository) Upsert(ctx context.Context, pref *domain.SetWeightPreference) error {
	if pref.UserID == primitive.NilObjectID || pref.ItemID == primitive.NilObjectID || pref.SetNumber <= 0 {
		return errors.New("weight preference requires userId, itemId, and a positive setNumber")
	}

	filter := bson.M{
		"userId":    pref.UserID,
		"itemId":    pref.ItemID,
		"setNumber": pref.SetNumber,
	}
	update := bson.M{
		"$set": bson.M{
			"weightKg":  pref.WeightKg,
			"updatedAt": time.Now().UTC(),
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

// ListByUserAndItems retrieves the stored preferences of one user for a set of
// items (the bootstrap hydration query).
func (r *mongoPreferenceRepository) ListByUserAndItems(ctx context.Context, userID primitive.ObjectID, itemIDs []primitive.ObjectID) ([]domain.SetWeightPreference, error) {
	if len(itemIDs) == 0 {
		return []domain.SetWeightPreference{}, nil
	}

	var prefs []domain.SetWeightPreference
	filter := bson.M{"userId": userID, "itemId": bson.M{"$in": itemIDs}}
	findOptions := options.Find().SetSort(bson.D{{Key: "itemId", Value: 1}, {Key: "setNumber", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &prefs); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return prefs, nil
}

// EnsurePreferenceIndexes creates necessary indexes for the set_weight_prefs
// collection.
func EnsurePreferenceIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "itemId", Value: 1}, {Key: "setNumber", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Non-fatal.
	}
}
