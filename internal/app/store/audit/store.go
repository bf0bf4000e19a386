// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collections. Financial actions go to their own trail, which is never purged.
const (
	LogsCollection      = "audit_logs"
	FinancialCollection = "financial_audit_trail"
)

// Trails select a collection in queries.
const (
	TrailGeneral   = "general"
	TrailFinancial = "financial"
)

// Severity levels.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Auth actions
const (
	ActionAuthLogin  = "auth_login"
	ActionAuthLogout = "auth_logout"
	ActionAuthFailed = "auth_failed"
	ActionAuthSignup = "auth_signup"
)

// Content actions
const (
	ActionMessageSent      = "message_sent"
	ActionMessageDeleted   = "message_deleted"
	ActionDocumentCreated  = "document_created"
	ActionDocumentUpdated  = "document_updated"
	ActionDocumentDeleted  = "document_deleted"
	ActionDocumentAccessed = "document_accessed"
	ActionDocumentRestored = "document_restored"
)

// Relationship actions
const (
	ActionRelationshipRequested = "relationship_requested"
	ActionRelationshipAccepted  = "relationship_accepted"
	ActionRelationshipDeclined  = "relationship_declined"
	ActionRelationshipRemoved   = "relationship_removed"
)

// API and security actions
const (
	ActionAPICall            = "api_call"
	ActionAPIError           = "api_error"
	ActionAPIRateLimited     = "api_rate_limited"
	ActionRateLimitViolation = "rate_limit_violation"
	ActionSecurityValidation = "security_validation_failed"
	ActionSecurityInjection  = "security_injection_attempt"
)

// Financial actions
const (
	ActionPayoutRequested = "payout_requested"
	ActionPayoutApproved  = "payout_approved"
	ActionPayoutRejected  = "payout_rejected"
	ActionPayoutProcessed = "payout_processed"
	ActionPayoutCancelled = "payout_cancelled"
	ActionReferralFlagged = "referral_flagged"
	ActionFraudConfirmed  = "fraud_confirmed"
	ActionUserRoleChanged = "user_role_changed"
)

var financialActions = map[string]struct{}{
	ActionPayoutRequested: {},
	ActionPayoutApproved:  {},
	ActionPayoutRejected:  {},
	ActionPayoutProcessed: {},
	ActionPayoutCancelled: {},
	ActionReferralFlagged: {},
	ActionFraudConfirmed:  {},
	ActionUserRoleChanged: {},
}

// IsFinancial reports whether action belongs in the financial trail.
func IsFinancial(action string) bool {
	_, ok := financialActions[action]
	return ok
}

// Event is one audit record.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`

	Action   string `bson:"action" json:"action"`
	Category string `bson:"category" json:"category"` // auth, content, relationship, api, security, financial
	Severity string `bson:"severity" json:"severity"`

	UserID  *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`   // affected user
	ActorID *primitive.ObjectID `bson:"actor_id,omitempty" json:"actor_id,omitempty"` // who acted, when different

	ResourceType string `bson:"resource_type,omitempty" json:"resource_type,omitempty"`
	ResourceID   string `bson:"resource_id,omitempty" json:"resource_id,omitempty"`

	IP         string `bson:"ip,omitempty" json:"ip,omitempty"`
	UserAgent  string `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	Endpoint   string `bson:"endpoint,omitempty" json:"endpoint,omitempty"`
	StatusCode int    `bson:"status_code,omitempty" json:"status_code,omitempty"`
	DurationMS int64  `bson:"duration_ms,omitempty" json:"duration_ms,omitempty"`

	Success       bool   `bson:"success" json:"success"`
	FailureReason string `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`

	Details map[string]string `bson:"details,omitempty" json:"details,omitempty"`
}

// QueryFilter selects events. Trail picks the collection (general by default).
type QueryFilter struct {
	Trail     string
	UserID    *primitive.ObjectID
	Action    string
	Category  string
	Severity  string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int64
	Offset    int64
}

// Store writes and reads both audit trails.
type Store struct {
	logs      *mongo.Collection
	financial *mongo.Collection
}

// New creates a Store.
func New(db *mongo.Database) *Store {
	return &Store{
		logs:      db.Collection(LogsCollection),
		financial: db.Collection(FinancialCollection),
	}
}

func (s *Store) trail(name string) *mongo.Collection {
	if name == TrailFinancial {
		return s.financial
	}
	return s.logs
}

// EnsureIndexes creates the query indexes on both trails.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "action", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "severity", Value: 1}, {Key: "timestamp", Value: -1}}},
	}
	for _, c := range []*mongo.Collection{s.logs, s.financial} {
		if _, err := c.Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}

// Log records event in the trail its action belongs to.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Severity == "" {
		event.Severity = SeverityInfo
	}
	c := s.logs
	if IsFinancial(event.Action) {
		event.Category = "financial"
		c = s.financial
	}
	_, err := c.InsertOne(ctx, event)
	return err
}

func buildQuery(f QueryFilter) bson.M {
	q := bson.M{}
	if f.UserID != nil {
		q["user_id"] = *f.UserID
	}
	if f.Action != "" {
		q["action"] = f.Action
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.Severity != "" {
		q["severity"] = f.Severity
	}
	if f.StartTime != nil || f.EndTime != nil {
		tq := bson.M{}
		if f.StartTime != nil {
			tq["$gte"] = *f.StartTime
		}
		if f.EndTime != nil {
			tq["$lte"] = *f.EndTime
		}
		q["timestamp"] = tq
	}
	return q
}

// Query returns events matching filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cur, err := s.trail(filter.Trail).Find(ctx, buildQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	events := []Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Count returns how many events match filter.
func (s *Store) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.trail(filter.Trail).CountDocuments(ctx, buildQuery(filter))
}

// Statistics summarizes events since a point in time across both trails.
type Statistics struct {
	Since      time.Time        `json:"since"`
	Total      int64            `json:"total"`
	Failures   int64            `json:"failures"`
	ByAction   map[string]int64 `json:"by_action"`
	BySeverity map[string]int64 `json:"by_severity"`
}

// Statistics counts events by action and severity since since.
func (s *Store) Statistics(ctx context.Context, since time.Time) (Statistics, error) {
	stats := Statistics{
		Since:      since,
		ByAction:   map[string]int64{},
		BySeverity: map[string]int64{},
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"timestamp": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id":      bson.M{"action": "$action", "severity": "$severity"},
			"count":    bson.M{"$sum": 1},
			"failures": bson.M{"$sum": bson.M{"$cond": bson.A{"$success", 0, 1}}},
		}}},
	}
	for _, c := range []*mongo.Collection{s.logs, s.financial} {
		cur, err := c.Aggregate(ctx, pipeline)
		if err != nil {
			return stats, err
		}
		var rows []struct {
			ID struct {
				Action   string `bson:"action"`
				Severity string `bson:"severity"`
			} `bson:"_id"`
			Count    int64 `bson:"count"`
			Failures int64 `bson:"failures"`
		}
		err = cur.All(ctx, &rows)
		cur.Close(ctx)
		if err != nil {
			return stats, err
		}
		for _, r := range rows {
			stats.Total += r.Count
			stats.Failures += r.Failures
			stats.ByAction[r.ID.Action] += r.Count
			stats.BySeverity[r.ID.Severity] += r.Count
		}
	}
	return stats, nil
}

// PurgeBefore deletes general events older than cutoff. The financial trail
// is kept.
func (s *Store) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.logs.DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
