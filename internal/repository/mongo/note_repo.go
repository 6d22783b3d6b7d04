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

const noteCollectionName = "exercise_notes"

// mongoNoteRepository implements repository.NoteRepository
type mongoNoteRepository struct {
	collection *mongo.Collection
}

// NewMongoNoteRepository creates a new ExerciseNote repository backed by MongoDB.
func NewMongoNoteRepository(db *mongo.Database) repository.NoteRepository {
	return &mongoNoteRepository{
		collection: db.Collection(noteCollectionName),
	}
}

// Upsert writes the note for a (session, item) pair. An RPE value is appended
// to rpeHistory on every write, keeping the history append-only.
func (r *mongoNoteRepository) Upsert(ctx context.Context, note *domain.ExerciseNote) error {
	if note.SessionID == primitive.NilObjectID || note.ItemID == primitive.NilObjectID {
		return errors.New("exercise note requires sessionId and itemId")
	}

	filter := bson.M{"sessionId": note.SessionID, "itemId": note.ItemID}
	set := bson.M{
		"notes":     note.Notes,
		"updatedAt": time.Now().UTC(),
	}
	if note.RPE != nil {
		set["rpe"] = note.RPE
	}
	if note.RIR != nil {
		set["rir"] = note.RIR
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": filter,
	}
	if note.RPE != nil {
		update["$push"] = bson.M{"rpeHistory": *note.RPE}
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

// Get retrieves the note row for one (session, item) pair.
func (r *mongoNoteRepository) Get(ctx context.Context, sessionID, itemID primitive.ObjectID) (*domain.ExerciseNote, error) {
	var note domain.ExerciseNote
	filter := bson.M{"sessionId": sessionID, "itemId": itemID}
	err := r.collection.FindOne(ctx, filter).Decode(&note)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &note, nil
}

// ListBySessions retrieves all notes of the given sessions, most recently
// updated first, so callers can pick the latest per item with a single scan.
func (r *mongoNoteRepository) ListBySessions(ctx context.Context, sessionIDs []primitive.ObjectID) ([]domain.ExerciseNote, error) {
	if len(sessionIDs) == 0 {
		return []domain.ExerciseNote{}, nil
	}

	var notes []domain.ExerciseNote
	filter := bson.M{"sessionId": bson.M{"$in": sessionIDs}}
	findOptions := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &notes); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}

// EnsureNoteIndexes creates necessary indexes for the exercise_notes collection.
func EnsureNoteIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sessionId", Value: 1}, {Key: "itemId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Non-fatal.
	}
}
