package ledgerstore

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

const (
	Collection      = "financial_ledger"
	HeadsCollection = "ledger_heads"
)

var errBadEntry = errors.New("ledger entry needs a positive amount and a credit or debit type")

// Store is the append-only financial ledger.
type Store struct {
	c     *mongo.Collection
	heads *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection), heads: db.Collection(HeadsCollection)}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "source", Value: 1}, {Key: "reference_id", Value: 1}}},
	})
	return err
}

// Append writes e.
func (s *Store) Append(ctx context.Context, e models.LedgerEntry) (models.LedgerEntry, error) {
	if e.Amount <= 0 || (e.EntryType != models.EntryCredit && e.EntryType != models.EntryDebit) {
		return models.LedgerEntry{}, errBadEntry
	}
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.LedgerEntry{}, err
	}
	return e, nil
}

// Credit adds amount to userID's balance.
func (s *Store) Credit(ctx context.Context, userID primitive.ObjectID, amount int64, source string, ref primitive.ObjectID, note string) (models.LedgerEntry, error) {
	return s.Append(ctx, models.LedgerEntry{UserID: userID, EntryType: models.EntryCredit, Amount: amount, Source: source, ReferenceID: ref, Note: note})
}

// Debit subtracts amount from userID's balance.
func (s *Store) Debit(ctx context.Context, userID primitive.ObjectID, amount int64, source string, ref primitive.ObjectID, note string) (models.LedgerEntry, error) {
	return s.Append(ctx, models.LedgerEntry{UserID: userID, EntryType: models.EntryDebit, Amount: amount, Source: source, ReferenceID: ref, Note: note})
}

// Remove deletes one entry. Only compensation paths use it.
func (s *Store) Remove(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// Lock bumps the user's ledger head. Two transactions that both lock the same
// user conflict, so a balance check followed by a debit cannot interleave.
func (s *Store) Lock(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.heads.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$inc": bson.M{"seq": 1}, "$set": bson.M{"updated_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	return err
}

// Balance is credits minus debits for userID.
func (s *Store) Balance(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id": nil,
			"balance": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$entry_type", models.EntryCredit}},
				"$amount",
				bson.M{"$multiply": bson.A{"$amount", -1}},
			}}},
		}}},
	})
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)
	var rows []struct {
		Balance int64 `bson:"balance"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Balance, nil
}

// List returns userID's entries, newest first.
func (s *Store) List(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.LedgerEntry{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SumBySource totals userID's credits and debits for one source.
func (s *Store) SumBySource(ctx context.Context, userID primitive.ObjectID, source string) (credits, debits int64, err error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID, "source": source}}},
		{{Key: "$group", Value: bson.M{"_id": "$entry_type", "total": bson.M{"$sum": "$amount"}}}},
	})
	if err != nil {
		return 0, 0, err
	}
	defer cur.Close(ctx)
	var rows []struct {
		Type  string `bson:"_id"`
		Total int64  `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, 0, err
	}
	for _, r := range rows {
		if r.Type == models.EntryCredit {
			credits = r.Total
		} else {
			debits = r.Total
		}
	}
	return credits, debits, nil
}
