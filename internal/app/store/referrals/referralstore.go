package referralstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const Collection = "referral_events"

var (
	ErrNotFound          = errors.New("referral event not found")
	ErrDuplicate         = errors.New("referral event already recorded")
	ErrInvalidTransition = errors.New("referral event is not in a state that allows this change")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// EnsureIndexes makes (referred_id, event_type) unique: a referred user
// signs up once and converts once.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "referred_id", Value: 1}, {Key: "event_type", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "referrer_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}

// Record inserts a recorded event.
func (s *Store) Record(ctx context.Context, referrerID, referredID primitive.ObjectID, eventType string, commission int64) (models.ReferralEvent, error) {
	e := models.ReferralEvent{
		ID:         primitive.NewObjectID(),
		ReferrerID: referrerID,
		ReferredID: referredID,
		EventType:  eventType,
		Commission: commission,
		Status:     models.ReferralRecorded,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		if wafflemongo.IsDup(err) {
			return models.ReferralEvent{}, ErrDuplicate
		}
		return models.ReferralEvent{}, err
	}
	return e, nil
}

// Get loads one event.
func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (*models.ReferralEvent, error) {
	var e models.ReferralEvent
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListByReferrer returns the events a referrer earned, newest first.
func (s *Store) ListByReferrer(ctx context.Context, referrerID primitive.ObjectID) ([]models.ReferralEvent, error) {
	cur, err := s.c.Find(ctx, bson.M{"referrer_id": referrerID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(500))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.ReferralEvent{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Totals summarizes a referrer's events. Confirmed fraud is excluded from
// the commission total.
type Totals struct {
	Signups     int64 `json:"signups"`
	Conversions int64 `json:"conversions"`
	Commission  int64 `json:"commission"`
}

// Summarize computes Totals from events.
func Summarize(events []models.ReferralEvent) Totals {
	var t Totals
	for _, e := range events {
		switch e.EventType {
		case models.ReferralSignup:
			t.Signups++
		case models.ReferralConversion:
			t.Conversions++
		}
		if e.Status != models.ReferralConfirmedFraud {
			t.Commission += e.Commission
		}
	}
	return t
}

func (s *Store) setStatus(ctx context.Context, id primitive.ObjectID, from []string, to string) (*models.ReferralEvent, error) {
	var e models.ReferralEvent
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": from}},
		bson.M{"$set": bson.M{"status": to}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, gerr := s.Get(ctx, id); gerr != nil {
			return nil, gerr
		}
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Flag marks a recorded event for review.
func (s *Store) Flag(ctx context.Context, id primitive.ObjectID) (*models.ReferralEvent, error) {
	return s.setStatus(ctx, id, []string{models.ReferralRecorded}, models.ReferralFlagged)
}

// ConfirmFraud marks a recorded or flagged event as fraudulent.
func (s *Store) ConfirmFraud(ctx context.Context, id primitive.ObjectID) (*models.ReferralEvent, error) {
	return s.setStatus(ctx, id, []string{models.ReferralRecorded, models.ReferralFlagged}, models.ReferralConfirmedFraud)
}

// ListByStatus returns events in status for admin review.
func (s *Store) ListByStatus(ctx context.Context, status string, limit int64) ([]models.ReferralEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.ReferralEvent{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Remove deletes an event. Only compensation paths use it.
func (s *Store) Remove(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// Revert puts an event back into status. Only compensation paths use it.
func (s *Store) Revert(ctx context.Context, id primitive.ObjectID, status string) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	return err
}
