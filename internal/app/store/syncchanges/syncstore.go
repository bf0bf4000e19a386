package syncstore

import (
	"context"
	"errors"
	"time"

	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const Collection = "sync_changes"

// MaxBatch is the largest push accepted at once.
const MaxBatch = 500

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// EnsureIndexes makes (user_id, client_id) unique so pushes are idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "client_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_client_change")},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "_id", Value: 1}}},
	})
	return err
}

// PushResult counts what Push did.
type PushResult struct {
	Accepted int    `json:"accepted"`
	Skipped  int    `json:"skipped"`
	Cursor   string `json:"cursor"`
}

// Push stores changes for userID. Changes whose client_id was already pushed
// are skipped. Cursor is the id of the newest stored change.
func (s *Store) Push(ctx context.Context, userID primitive.ObjectID, changes []models.SyncChange) (PushResult, error) {
	var res PushResult
	if len(changes) == 0 {
		return res, nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, len(changes))
	for i := range changes {
		changes[i].ID = primitive.NewObjectID()
		changes[i].UserID = userID
		changes[i].CreatedAt = now
		docs[i] = changes[i]
	}

	_, err := s.c.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	var bwe mongo.BulkWriteException
	switch {
	case err == nil:
		res.Accepted = len(changes)
	case errors.As(err, &bwe):
		if !onlyDuplicates(bwe) {
			return res, err
		}
		res.Skipped = len(bwe.WriteErrors)
		res.Accepted = len(changes) - res.Skipped
	default:
		return res, err
	}

	last, err := s.latestID(ctx, userID)
	if err != nil {
		return res, err
	}
	if !last.IsZero() {
		res.Cursor = last.Hex()
	}
	return res, nil
}

// onlyDuplicates reports whether every failed insert was a re-sent change.
func onlyDuplicates(bwe mongo.BulkWriteException) bool {
	if bwe.WriteConcernError != nil {
		return false
	}
	for _, we := range bwe.WriteErrors {
		if !mongo.IsDuplicateKeyError(we.WriteError) {
			return false
		}
	}
	return true
}

func (s *Store) latestID(ctx context.Context, userID primitive.ObjectID) (primitive.ObjectID, error) {
	var row struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	err := s.c.FindOne(ctx, bson.M{"user_id": userID},
		options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}}).SetProjection(bson.M{"_id": 1})).Decode(&row)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return primitive.NilObjectID, nil
	}
	return row.ID, err
}

// Pull returns userID's changes after since in insertion order, and the
// cursor to pass next time.
func (s *Store) Pull(ctx context.Context, userID, since primitive.ObjectID, limit int64) ([]models.SyncChange, string, error) {
	filter := bson.M{"user_id": userID}
	if !since.IsZero() {
		filter["_id"] = bson.M{"$gt": since}
	}
	if limit <= 0 || limit > MaxBatch {
		limit = MaxBatch
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(limit))
	if err != nil {
		return nil, "", err
	}
	defer cur.Close(ctx)
	out := []models.SyncChange{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, "", err
	}
	next := ""
	if len(out) > 0 {
		next = out[len(out)-1].ID.Hex()
	} else if !since.IsZero() {
		next = since.Hex()
	}
	return out, next, nil
}
