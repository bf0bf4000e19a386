package payoutstore

import (
	"context"
	"errors"
	"time"

	ledgerstore "github.com/zerlake/thesisai/internal/app/store/ledger"
	"github.com/zerlake/thesisai/internal/app/system/txn"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const Collection = "payout_requests"

var (
	ErrNotFound            = errors.New("payout request not found")
	ErrInvalidTransition   = errors.New("payout is not in a state that allows this change")
	ErrInsufficientBalance = errors.New("balance does not cover the requested amount")
)

// Store keeps payout requests and their ledger effects in step.
type Store struct {
	client *mongo.Client
	c      *mongo.Collection
	ledger *ledgerstore.Store
	log    *zap.Logger
}

func New(db *mongo.Database, ledger *ledgerstore.Store, logger *zap.Logger) *Store {
	return &Store{client: db.Client(), c: db.Collection(Collection), ledger: ledger, log: logger}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}

// Request reserves amount from the user's balance: it inserts a pending
// request and the matching ledger debit.
func (s *Store) Request(ctx context.Context, userID primitive.ObjectID, amount int64, method, details string) (models.PayoutRequest, error) {
	var out models.PayoutRequest
	err := txn.Run(ctx, s.client, s.log, func(ctx context.Context) error {
		if err := s.ledger.Lock(ctx, userID); err != nil {
			return err
		}
		balance, err := s.ledger.Balance(ctx, userID)
		if err != nil {
			return err
		}
		if balance < amount {
			return ErrInsufficientBalance
		}

		now := time.Now().UTC()
		out = models.PayoutRequest{
			ID:             primitive.NewObjectID(),
			UserID:         userID,
			Amount:         amount,
			Method:         method,
			AccountDetails: details,
			Status:         models.PayoutPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if _, err := s.c.InsertOne(ctx, out); err != nil {
			return err
		}
		if _, err := s.ledger.Debit(ctx, userID, amount, models.SourcePayout, out.ID, "payout request"); err != nil {
			if txn.Compensating(ctx) {
				if _, derr := s.c.DeleteOne(context.WithoutCancel(ctx), bson.M{"_id": out.ID}); derr != nil {
					s.log.Error("payout request compensation failed", zap.Error(derr))
				}
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.PayoutRequest{}, err
	}
	return out, nil
}

// Get loads one request.
func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (*models.PayoutRequest, error) {
	var p models.PayoutRequest
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByUser returns a user's requests, newest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.PayoutRequest, error) {
	return s.list(ctx, bson.M{"user_id": userID}, 200)
}

// ListAll returns requests with status, or every request when status is
// empty.
func (s *Store) ListAll(ctx context.Context, status string, limit int64) ([]models.PayoutRequest, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return s.list(ctx, filter, limit)
}

func (s *Store) list(ctx context.Context, filter bson.M, limit int64) ([]models.PayoutRequest, error) {
	if limit <= 0 {
		limit = 100
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.PayoutRequest{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// transition moves a request from `from` to `to`. owner, when set, must be
// the requester.
func (s *Store) transition(ctx context.Context, id primitive.ObjectID, from, to string, owner, reviewer *primitive.ObjectID, reason string) (*models.PayoutRequest, error) {
	filter := bson.M{"_id": id, "status": from}
	if owner != nil {
		filter["user_id"] = *owner
	}
	set := bson.M{"status": to, "updated_at": time.Now().UTC()}
	if reviewer != nil {
		set["reviewer_id"] = *reviewer
	}
	if reason != "" {
		set["reason"] = reason
	}

	var p models.PayoutRequest
	err := s.c.FindOneAndUpdate(ctx, filter, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		lookup := bson.M{"_id": id}
		if owner != nil {
			lookup["user_id"] = *owner
		}
		n, cerr := s.c.CountDocuments(ctx, lookup)
		if cerr != nil {
			return nil, cerr
		}
		if n == 0 {
			return nil, ErrNotFound
		}
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// reverse runs a transition that ends the request and credits the amount
// back to the requester.
func (s *Store) reverse(ctx context.Context, id primitive.ObjectID, to string, owner, reviewer *primitive.ObjectID, reason string) (*models.PayoutRequest, error) {
	var out *models.PayoutRequest
	err := txn.Run(ctx, s.client, s.log, func(ctx context.Context) error {
		p, err := s.transition(ctx, id, models.PayoutPending, to, owner, reviewer, reason)
		if err != nil {
			return err
		}
		if _, err := s.ledger.Credit(ctx, p.UserID, p.Amount, models.SourcePayoutReversal, p.ID, to); err != nil {
			if txn.Compensating(ctx) {
				_, uerr := s.c.UpdateOne(context.WithoutCancel(ctx),
					bson.M{"_id": id, "status": to},
					bson.M{"$set": bson.M{"status": models.PayoutPending}})
				if uerr != nil {
					s.log.Error("payout reversal compensation failed", zap.Error(uerr))
				}
			}
			return err
		}
		out = p
		return nil
	})
	return out, err
}

// Approve moves pending to approved.
func (s *Store) Approve(ctx context.Context, id, reviewer primitive.ObjectID) (*models.PayoutRequest, error) {
	return s.transition(ctx, id, models.PayoutPending, models.PayoutApproved, nil, &reviewer, "")
}

// Process moves approved to processed once the money is sent.
func (s *Store) Process(ctx context.Context, id, reviewer primitive.ObjectID) (*models.PayoutRequest, error) {
	return s.transition(ctx, id, models.PayoutApproved, models.PayoutProcessed, nil, &reviewer, "")
}

// Reject moves pending to rejected and restores the balance.
func (s *Store) Reject(ctx context.Context, id, reviewer primitive.ObjectID, reason string) (*models.PayoutRequest, error) {
	return s.reverse(ctx, id, models.PayoutRejected, nil, &reviewer, reason)
}

// Cancel lets the requester withdraw a pending request and restores the
// balance.
func (s *Store) Cancel(ctx context.Context, id, userID primitive.ObjectID) (*models.PayoutRequest, error) {
	return s.reverse(ctx, id, models.PayoutCancelled, &userID, nil, "")
}
