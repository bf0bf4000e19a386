package documentstore

import (
	"context"
	"errors"
	"time"

	"github.com/zerlake/thesisai/internal/app/system/paging"
	"github.com/zerlake/thesisai/internal/app/system/txn"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	Collection         = "documents"
	VersionsCollection = "document_versions"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrVersionConflict = errors.New("document was changed by someone else")
	ErrVersionNotFound = errors.New("document version not found")
)

type Store struct {
	client   *mongo.Client
	c        *mongo.Collection
	versions *mongo.Collection
	log      *zap.Logger
}

func New(db *mongo.Database, logger *zap.Logger) *Store {
	return &Store{
		client:   db.Client(),
		c:        db.Collection(Collection),
		versions: db.Collection(VersionsCollection),
		log:      logger,
	}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "updated_at", Value: -1}, {Key: "_id", Value: -1}},
	}); err != nil {
		return err
	}
	_, err := s.versions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "document_id", Value: 1}, {Key: "version", Value: -1}},
		Options: options.Index().SetUnique(true).SetName("uniq_document_version"),
	})
	return err
}

// Create stores version 1 of a document.
func (s *Store) Create(ctx context.Context, ownerID primitive.ObjectID, title, content, status string) (models.Document, error) {
	if status == "" {
		status = models.DocumentDraft
	}
	now := time.Now().UTC()
	d := models.Document{
		ID:        primitive.NewObjectID(),
		OwnerID:   ownerID,
		Title:     title,
		Content:   content,
		Status:    status,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, d); err != nil {
		return models.Document{}, err
	}
	return d, nil
}

// Get loads a document.
func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (*models.Document, error) {
	var d models.Document
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListByOwner returns one page of ownerID's documents, most recently updated
// first, plus the cursor of the next page ("" when there is none).
func (s *Store) ListByOwner(ctx context.Context, ownerID primitive.ObjectID, after string, limit int) ([]models.Document, string, error) {
	filter := bson.M{"owner_id": ownerID}
	if c, ok := paging.DecodeTimeCursor(after); ok {
		filter = bson.M{"$and": bson.A{filter, c.OlderThan("updated_at")}}
	}
	opts := options.Find().
		SetSort(paging.NewestFirst("updated_at")).
		SetLimit(int64(limit + 1)).
		SetProjection(bson.M{"content": 0})

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, "", err
	}
	defer cur.Close(ctx)
	rows := []models.Document{}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, "", err
	}
	next := ""
	if paging.TrimPage(&rows, limit) {
		last := rows[len(rows)-1]
		next = paging.EncodeTimeCursor(last.UpdatedAt, last.ID)
	}
	return rows, next, nil
}

// CountByOwner counts ownerID's documents.
func (s *Store) CountByOwner(ctx context.Context, ownerID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"owner_id": ownerID})
}

// Update changes a document. Nil fields keep their value.
type Update struct {
	Title   *string
	Content *string
	Status  *string
}

// Apply updates the owner's document if it is still at expectedVersion. The
// previous state is kept in document_versions and the version goes up by one.
func (s *Store) Apply(ctx context.Context, id, ownerID primitive.ObjectID, expectedVersion int, upd Update) (*models.Document, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Content != nil {
		set["content"] = *upd.Content
	}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}

	var after models.Document
	err := txn.Run(ctx, s.client, s.log, func(ctx context.Context) error {
		var before models.Document
		err := s.c.FindOneAndUpdate(ctx,
			bson.M{"_id": id, "owner_id": ownerID, "version": expectedVersion},
			bson.M{"$set": set, "$inc": bson.M{"version": 1}},
		).Decode(&before)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return s.missOrConflict(ctx, id, ownerID)
		}
		if err != nil {
			return err
		}

		snap := models.DocumentVersion{
			ID:         primitive.NewObjectID(),
			DocumentID: id,
			Version:    before.Version,
			Title:      before.Title,
			Content:    before.Content,
			CreatedBy:  ownerID,
			CreatedAt:  time.Now().UTC(),
		}
		if _, err := s.versions.InsertOne(ctx, snap); err != nil {
			if txn.Compensating(ctx) {
				_, rerr := s.c.ReplaceOne(context.WithoutCancel(ctx), bson.M{"_id": id, "version": before.Version + 1}, before)
				if rerr != nil {
					s.log.Error("document update compensation failed", zap.Error(rerr))
				}
			}
			return err
		}

		after = before
		after.Version = before.Version + 1
		after.UpdatedAt = set["updated_at"].(time.Time)
		if upd.Title != nil {
			after.Title = *upd.Title
		}
		if upd.Content != nil {
			after.Content = *upd.Content
		}
		if upd.Status != nil {
			after.Status = *upd.Status
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &after, nil
}

func (s *Store) missOrConflict(ctx context.Context, id, ownerID primitive.ObjectID) error {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id, "owner_id": ownerID})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrVersionConflict
}

// Versions lists the snapshots of a document, newest first.
func (s *Store) Versions(ctx context.Context, id primitive.ObjectID) ([]models.DocumentVersion, error) {
	cur, err := s.versions.Find(ctx, bson.M{"document_id": id},
		options.Find().SetSort(bson.D{{Key: "version", Value: -1}}).SetProjection(bson.M{"content": 0}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.DocumentVersion{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Restore writes the title and content of an old version as a new version.
func (s *Store) Restore(ctx context.Context, id, ownerID primitive.ObjectID, version int) (*models.Document, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	var snap models.DocumentVersion
	err = s.versions.FindOne(ctx, bson.M{"document_id": id, "version": version}).Decode(&snap)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrVersionNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.Apply(ctx, id, ownerID, doc.Version, Update{Title: &snap.Title, Content: &snap.Content})
}

// Delete removes the owner's document and its versions.
func (s *Store) Delete(ctx context.Context, id, ownerID primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "owner_id": ownerID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	_, err = s.versions.DeleteMany(ctx, bson.M{"document_id": id})
	return err
}

// AddAttachment records an uploaded object on the owner's document.
func (s *Store) AddAttachment(ctx context.Context, id, ownerID primitive.ObjectID, a models.Attachment) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "owner_id": ownerID},
		bson.M{"$push": bson.M{"attachments": a}, "$set": bson.M{"updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
