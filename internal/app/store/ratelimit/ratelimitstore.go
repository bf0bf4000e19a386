// Package ratelimitstore persists rate-limit violations, daily feature usage,
// and whitelist rules.
package ratelimitstore

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ViolationsCollection = "rate_limit_violations"
	UsageCollection      = "feature_usage"
	WhitelistCollection  = "rate_limit_whitelist"
)

var ErrRuleNotFound = errors.New("whitelist rule not found")

type Store struct {
	violations *mongo.Collection
	usage      *mongo.Collection
	whitelist  *mongo.Collection
	now        func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{
		violations: db.Collection(ViolationsCollection),
		usage:      db.Collection(UsageCollection),
		whitelist:  db.Collection(WhitelistCollection),
		now:        time.Now,
	}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.violations.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "feature", Value: 1}, {Key: "violation_type", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}); err != nil {
		return err
	}
	if _, err := s.usage.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "feature", Value: 1}, {Key: "day", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_user_feature_day")},
		{Keys: bson.D{{Key: "day", Value: 1}}},
	}); err != nil {
		return err
	}
	_, err := s.whitelist.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "scope", Value: 1}, {Key: "value", Value: 1}},
	})
	return err
}

/*─────────────────────────────────────────────────────────────────────────────*
| Violations                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// RecordViolation implements ratelimit.ViolationRecorder.
func (s *Store) RecordViolation(ctx context.Context, v models.RateLimitViolation) error {
	if v.ID.IsZero() {
		v.ID = primitive.NewObjectID()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = s.now().UTC()
	}
	_, err := s.violations.InsertOne(ctx, v)
	return err
}

// ViolationFilter selects violations. Zero fields match everything.
type ViolationFilter struct {
	Feature       string
	ViolationType string
	UserID        *primitive.ObjectID
	Since         *time.Time
	Until         *time.Time
	Limit         int64
	Offset        int64
}

func (f ViolationFilter) query() bson.M {
	q := bson.M{}
	if f.Feature != "" {
		q["feature"] = f.Feature
	}
	if f.ViolationType != "" {
		q["violation_type"] = f.ViolationType
	}
	if f.UserID != nil {
		q["user_id"] = *f.UserID
	}
	if f.Since != nil || f.Until != nil {
		r := bson.M{}
		if f.Since != nil {
			r["$gte"] = *f.Since
		}
		if f.Until != nil {
			r["$lte"] = *f.Until
		}
		q["created_at"] = r
	}
	return q
}

// Violations returns matching violations newest first and the total count.
func (s *Store) Violations(ctx context.Context, f ViolationFilter) ([]models.RateLimitViolation, int64, error) {
	q := f.query()
	total, err := s.violations.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	cur, err := s.violations.Find(ctx, q, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(f.Offset).
		SetLimit(limit))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	out := []models.RateLimitViolation{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// SummaryRow groups violations by feature and type.
type SummaryRow struct {
	Feature       string    `bson:"feature" json:"feature"`
	ViolationType string    `bson:"violation_type" json:"violation_type"`
	Count         int64     `bson:"count" json:"count"`
	AffectedUsers int       `bson:"affected_users" json:"affected_users"`
	MaxExcess     int       `bson:"max_excess" json:"max_excess"`
	FirstSeen     time.Time `bson:"first_seen" json:"first_seen"`
	LastSeen      time.Time `bson:"last_seen" json:"last_seen"`
}

// Summary aggregates violations since since, most frequent first.
func (s *Store) Summary(ctx context.Context, since time.Time) ([]SummaryRow, error) {
	cur, err := s.violations.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id":        bson.M{"feature": "$feature", "violation_type": "$violation_type"},
			"count":      bson.M{"$sum": 1},
			"identities": bson.M{"$addToSet": "$identifier"},
			"max_excess": bson.M{"$max": bson.M{"$subtract": bson.A{"$actual_count", "$limit_threshold"}}},
			"first_seen": bson.M{"$min": "$created_at"},
			"last_seen":  bson.M{"$max": "$created_at"},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":            0,
			"feature":        "$_id.feature",
			"violation_type": "$_id.violation_type",
			"count":          1,
			"affected_users": bson.M{"$size": "$identities"},
			"max_excess":     1,
			"first_seen":     1,
			"last_seen":      1,
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "feature", Value: 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []SummaryRow{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TopOffender is an identity with many violations.
type TopOffender struct {
	IdentifierType string              `bson:"identifier_type" json:"identifier_type"`
	Identifier     string              `bson:"identifier" json:"identifier"`
	UserID         *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Count          int64               `bson:"count" json:"count"`
	Features       []string            `bson:"features" json:"features"`
	LastSeen       time.Time           `bson:"last_seen" json:"last_seen"`
}

// TopOffenders returns the identities with the most violations since since.
func (s *Store) TopOffenders(ctx context.Context, since time.Time, limit int64) ([]TopOffender, error) {
	if limit <= 0 {
		limit = 10
	}
	cur, err := s.violations.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id":       bson.M{"t": "$identifier_type", "i": "$identifier"},
			"user_id":   bson.M{"$max": "$user_id"},
			"count":     bson.M{"$sum": 1},
			"features":  bson.M{"$addToSet": "$feature"},
			"last_seen": bson.M{"$max": "$created_at"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$project", Value: bson.M{
			"_id":             0,
			"identifier_type": "$_id.t",
			"identifier":      "$_id.i",
			"user_id":         1,
			"count":           1,
			"features":        1,
			"last_seen":       1,
		}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []TopOffender{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	for i := range out {
		sort.Strings(out[i].Features)
	}
	return out, nil
}

// PurgeViolationsBefore deletes violations older than cutoff.
func (s *Store) PurgeViolationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.violations.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Usage                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// Increment implements ratelimit.UsageCounter.
func (s *Store) Increment(ctx context.Context, userID primitive.ObjectID, feature, day string) (int, error) {
	var u models.FeatureUsage
	err := s.usage.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID, "feature": feature, "day": day},
		bson.M{"$inc": bson.M{"count": 1}, "$set": bson.M{"updated_at": s.now().UTC()}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		return 0, err
	}
	return u.Count, nil
}

// UsageOn returns userID's per-feature counts for day.
func (s *Store) UsageOn(ctx context.Context, userID primitive.ObjectID, day string) (map[string]int, error) {
	cur, err := s.usage.Find(ctx, bson.M{"user_id": userID, "day": day})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := map[string]int{}
	for cur.Next(ctx) {
		var u models.FeatureUsage
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out[u.Feature] = u.Count
	}
	return out, cur.Err()
}

// PurgeUsageBefore deletes counters for days before day (YYYY-MM-DD).
func (s *Store) PurgeUsageBefore(ctx context.Context, day string) (int64, error) {
	res, err := s.usage.DeleteMany(ctx, bson.M{"day": bson.M{"$lt": day}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Whitelist                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// AddRule stores a whitelist rule.
func (s *Store) AddRule(ctx context.Context, r models.WhitelistRule) (models.WhitelistRule, error) {
	r.ID = primitive.NewObjectID()
	r.CreatedAt = s.now().UTC()
	if !r.Unlimited && r.QuotaMultiplier <= 0 {
		r.QuotaMultiplier = 1
	}
	if _, err := s.whitelist.InsertOne(ctx, r); err != nil {
		return models.WhitelistRule{}, err
	}
	return r, nil
}

// Rules lists every rule, expired ones included.
func (s *Store) Rules(ctx context.Context) ([]models.WhitelistRule, error) {
	cur, err := s.whitelist.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.WhitelistRule{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveRule deletes a rule.
func (s *Store) RemoveRule(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.whitelist.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// Match implements ratelimit.WhitelistSource. Among live rules for the user,
// IP, or plan that cover feature, an unlimited rule wins, then the largest
// multiplier.
func (s *Store) Match(ctx context.Context, userID, ip, plan, feature string) (*models.WhitelistRule, error) {
	subjects := bson.A{}
	if userID != "" {
		subjects = append(subjects, bson.M{"scope": models.WhitelistUser, "value": userID})
	}
	if ip != "" {
		subjects = append(subjects, bson.M{"scope": models.WhitelistIP, "value": ip})
	}
	if plan != "" {
		subjects = append(subjects, bson.M{"scope": models.WhitelistPlan, "value": plan})
	}
	if len(subjects) == 0 {
		return nil, nil
	}
	filter := bson.M{"$and": bson.A{
		bson.M{"$or": subjects},
		bson.M{"$or": bson.A{bson.M{"feature": feature}, bson.M{"feature": bson.M{"$exists": false}}, bson.M{"feature": ""}}},
		bson.M{"$or": bson.A{bson.M{"expires_at": bson.M{"$exists": false}}, bson.M{"expires_at": nil}, bson.M{"expires_at": bson.M{"$gt": s.now().UTC()}}}},
	}}
	cur, err := s.whitelist.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "unlimited", Value: -1}, {Key: "quota_multiplier", Value: -1}}).SetLimit(1))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	if !cur.Next(ctx) {
		return nil, cur.Err()
	}
	var r models.WhitelistRule
	if err := cur.Decode(&r); err != nil {
		return nil, err
	}
	return &r, nil
}
