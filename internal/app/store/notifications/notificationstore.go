package notificationstore

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

const Collection = "notifications"

// DefaultTTL applies when the store is built with a zero ttl.
const DefaultTTL = 30 * 24 * time.Hour

var ErrNotFound = errors.New("notification not found")

type Store struct {
	c   *mongo.Collection
	ttl time.Duration
	now func() time.Time
}

// New creates a Store whose notifications expire ttl after creation.
func New(db *mongo.Database, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{c: db.Collection(Collection), ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// EnsureIndexes adds the expiry TTL index and the inbox index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at")},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "read", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}

// Notify creates an unread notification for userID.
func (s *Store) Notify(ctx context.Context, userID primitive.ObjectID, kind, title, body, link string) (models.Notification, error) {
	now := s.now()
	n := models.Notification{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Type:      kind,
		Title:     title,
		Body:      body,
		Link:      link,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if _, err := s.c.InsertOne(ctx, n); err != nil {
		return models.Notification{}, err
	}
	return n, nil
}

// List returns userID's live notifications, newest first.
func (s *Store) List(ctx context.Context, userID primitive.ObjectID, unreadOnly bool, limit int64) ([]models.Notification, error) {
	filter := bson.M{"user_id": userID, "expires_at": bson.M{"$gt": s.now()}}
	if unreadOnly {
		filter["read"] = false
	}
	if limit <= 0 {
		limit = 50
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Notification{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UnreadCount counts userID's live unread notifications.
func (s *Store) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"user_id": userID, "read": false, "expires_at": bson.M{"$gt": s.now()}})
}

// MarkRead marks one of userID's notifications read.
func (s *Store) MarkRead(ctx context.Context, userID, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "user_id": userID}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of userID read.
func (s *Store) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx, bson.M{"user_id": userID, "read": false}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Delete removes one of userID's notifications.
func (s *Store) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeExpired deletes notifications past their expiry.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": s.now()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
