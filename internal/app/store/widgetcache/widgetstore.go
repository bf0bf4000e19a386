package widgetstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const Collection = "widget_data_cache"

// DefaultTTL is how long computed widget data is served from the cache.
const DefaultTTL = time.Hour

var ErrNotFound = errors.New("widget data not cached")

// Entry is the cached data of one widget for one user. Data is the JSON the
// widget endpoint answered with.
type Entry struct {
	UserID    primitive.ObjectID `bson:"user_id"`
	WidgetID  string             `bson:"widget_id"`
	Data      []byte             `bson:"data"`
	ExpiresAt time.Time          `bson:"expires_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// EnsureIndexes adds the per-user key and the expiry TTL index. The TTL
// monitor removes rows lazily; Get checks expires_at itself.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "widget_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_user_widget")},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at")},
	})
	return err
}

// Get returns the unexpired entry for the user's widget.
func (s *Store) Get(ctx context.Context, userID primitive.ObjectID, widgetID string, now time.Time) (*Entry, error) {
	var e Entry
	err := s.c.FindOne(ctx, bson.M{
		"user_id":    userID,
		"widget_id":  widgetID,
		"expires_at": bson.M{"$gt": now},
	}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Put stores data for the user's widget until now+ttl, replacing any entry.
func (s *Store) Put(ctx context.Context, userID primitive.ObjectID, widgetID string, data json.RawMessage, now time.Time, ttl time.Duration) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": userID, "widget_id": widgetID},
		bson.M{"$set": bson.M{
			"data":       []byte(data),
			"expires_at": now.Add(ttl),
			"updated_at": now,
		}},
		options.Update().SetUpsert(true))
	return err
}

// Clear drops the user's cached widget data. A missing entry is not an error.
func (s *Store) Clear(ctx context.Context, userID primitive.ObjectID, widgetID string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"user_id": userID, "widget_id": widgetID})
	return err
}
