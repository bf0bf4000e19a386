package messagestore

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

const Collection = "messages"

var ErrNotFound = errors.New("message not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "recipient_id", Value: 1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "read", Value: 1}}},
	})
	return err
}

// Send stores a message. The body must already be sanitized.
func (s *Store) Send(ctx context.Context, from, to primitive.ObjectID, body string) (models.Message, error) {
	m := models.Message{
		ID:          primitive.NewObjectID(),
		SenderID:    from,
		RecipientID: to,
		Body:        body,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Message{}, err
	}
	return m, nil
}

// Conversation returns messages between a and b, newest first. A non-zero
// before pages to messages older than that id.
func (s *Store) Conversation(ctx context.Context, a, b primitive.ObjectID, before primitive.ObjectID, limit int64) ([]models.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"sender_id": a, "recipient_id": b},
		bson.M{"sender_id": b, "recipient_id": a},
	}}
	if !before.IsZero() {
		filter["_id"] = bson.M{"$lt": before}
	}
	if limit <= 0 {
		limit = 50
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Message{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead marks a message read. Only its recipient may.
func (s *Store) MarkRead(ctx context.Context, id, recipientID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "recipient_id": recipientID}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a message. Only its sender may.
func (s *Store) Delete(ctx context.Context, id, senderID primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "sender_id": senderID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UnreadCount counts unread messages addressed to userID.
func (s *Store) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"recipient_id": userID, "read": false})
}
