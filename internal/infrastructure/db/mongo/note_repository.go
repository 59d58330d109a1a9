package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/notekeeper/notes-platform/internal/core/domain"
)

const collectionNotes = "notes"

type NoteRepository struct {
	col *mongo.Collection
}

func NewNoteRepository(db *mongo.Database) *NoteRepository {
	return &NoteRepository{col: db.Collection(collectionNotes)}
}

type noteDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"userId"`
	Title     string             `bson:"title"`
	Content   string             `bson:"content"`
	Tags      []string           `bson:"tags"`
	IsPinned  bool               `bson:"isPinned"`
	CreatedOn time.Time          `bson:"createdOn"`
}

func (d noteDoc) toDomain() *domain.Note {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return &domain.Note{
		ID:        d.ID.Hex(),
		UserID:    d.UserID,
		Title:     d.Title,
		Content:   d.Content,
		Tags:      tags,
		IsPinned:  d.IsPinned,
		CreatedAt: d.CreatedOn.UTC(),
	}
}

// ownerFilter scopes a lookup to one note of one user. ok is false when id is
// not a valid ObjectID.
func ownerFilter(id, userID string) (bson.M, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": oid, "userId": userID}, true
}

// patchUpdate builds the $set document for the non-nil fields of p.
func patchUpdate(p domain.NotePatch) bson.M {
	set := bson.M{}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Content != nil {
		set["content"] = *p.Content
	}
	if p.Tags != nil {
		set["tags"] = p.Tags
	}
	if p.IsPinned != nil {
		set["isPinned"] = *p.IsPinned
	}
	return bson.M{"$set": set}
}

func (r *NoteRepository) Create(ctx context.Context, note *domain.Note) (*domain.Note, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := noteDoc{
		UserID:    note.UserID,
		Title:     note.Title,
		Content:   note.Content,
		Tags:      note.Tags,
		IsPinned:  note.IsPinned,
		CreatedOn: note.CreatedAt,
	}
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain(), nil
}

func (r *NoteRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Note, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{
		{Key: "isPinned", Value: -1},
		{Key: "createdOn", Value: -1},
	})
	cursor, err := r.col.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find notes: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []noteDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode notes: %w", err)
	}

	notes := make([]*domain.Note, 0, len(docs))
	for _, d := range docs {
		notes = append(notes, d.toDomain())
	}
	return notes, nil
}

func (r *NoteRepository) Update(ctx context.Context, id, userID string, patch domain.NotePatch) (*domain.Note, error) {
	filter, ok := ownerFilter(id, userID)
	if !ok {
		return nil, domain.ErrNoteNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc noteDoc
	if err := r.col.FindOneAndUpdate(ctx, filter, patchUpdate(patch), opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNoteNotFound
		}
		return nil, fmt.Errorf("update note: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *NoteRepository) Delete(ctx context.Context, id, userID string) error {
	filter, ok := ownerFilter(id, userID)
	if !ok {
		return domain.ErrNoteNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNoteNotFound
	}
	return nil
}

// EnsureIndexes creates the index backing the owner listing query.
func (r *NoteRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "userId", Value: 1},
			{Key: "isPinned", Value: -1},
			{Key: "createdOn", Value: -1},
		},
	})
	if err != nil {
		return fmt.Errorf("create note indexes: %w", err)
	}
	return nil
}
