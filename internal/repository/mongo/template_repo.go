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

const templateCollectionName = "templates"

// mongoTemplateRepository implements repository.TemplateRepository
type mongoTemplateRepository struct {
	collection *mongo.Collection
}

// NewMongoTemplateRepository creates a new Template repository backed by MongoDB.
func NewMongoTemplateRepository(db *mongo.Database) repository.TemplateRepository {
	return &mongoTemplateRepository{
		collection: db.Collection(templateCollectionName),
	}
}

// Create inserts a new template. Embedded days/items get ids assigned here so
// authoring clients can address them immediately.
func (r *mongoTemplateRepository) Create(ctx context.Context, tpl *domain.Template) (primitive.ObjectID, error) {
	if tpl.AuthorID == primitive.NilObjectID || tpl.Title == "" {
		return primitive.NilObjectID, errors.New("template requires authorId and title")
	}

	tpl.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now
	assignEmbeddedIDs(tpl)

	result, err := r.collection.InsertOne(ctx, tpl)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted template ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single template (with embedded days/items) by its ID.
func (r *mongoTemplateRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Template, error) {
	var tpl domain.Template
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&tpl)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &tpl, nil
}

// ListByAuthor retrieves all templates authored by the given admin, newest first.
func (r *mongoTemplateRepository) ListByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]domain.Template, error) {
	var templates []domain.Template
	filter := bson.M{"authorId": authorID}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return templates, nil
}

// Update replaces the mutable fields of a template, including the embedded
// days array wholesale. Authoring edits always go through the full document.
func (r *mongoTemplateRepository) Update(ctx context.Context, tpl *domain.Template) error {
	if tpl.ID == primitive.NilObjectID {
		return errors.New("template ID is required for update")
	}
	assignEmbeddedIDs(tpl)

	filter := bson.M{"_id": tpl.ID, "authorId": tpl.AuthorID}
	update := bson.M{
		"$set": bson.M{
			"title":       tpl.Title,
			"description": tpl.Description,
			"weeks":       tpl.Weeks,
			"isPublished": tpl.IsPublished,
			"days":        tpl.Days,
			"updatedAt":   time.Now().UTC(),
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

// Delete removes a template owned by the given author.
func (r *mongoTemplateRepository) Delete(ctx context.Context, id, authorID primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "authorId": authorID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		// Template not found OR not owned by this author.
		return repository.ErrNotFound
	}
	return nil
}

// assignEmbeddedIDs fills in ids for embedded days, items and alternatives
// that were created by an authoring edit and don't have one yet.
func assignEmbeddedIDs(tpl *domain.Template) {
	for di := range tpl.Days {
		if tpl.Days[di].ID == primitive.NilObjectID {
			tpl.Days[di].ID = primitive.NewObjectID()
		}
		for ii := range tpl.Days[di].Items {
			if tpl.Days[di].Items[ii].ID == primitive.NilObjectID {
				tpl.Days[di].Items[ii].ID = primitive.NewObjectID()
			}
			for ai := range tpl.Days[di].Items[ii].Alternatives {
				if tpl.Days[di].Items[ii].Alternatives[ai].ID == primitive.NilObjectID {
					tpl.Days[di].Items[ii].Alternatives[ai].ID = primitive.NewObjectID()
				}
			}
		}
	}
}

// EnsureTemplateIndexes creates necessary indexes for the templates collection.
func EnsureTemplateIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "authorId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "isPublished", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Non-fatal.
	}
}
