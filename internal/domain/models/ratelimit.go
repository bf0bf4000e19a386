// internal/domain/models/ratelimit.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Violation types and actions recorded for rate-limit denials.
const (
	ViolationPerMinute    = "per_minute"
	ViolationDailyQuota   = "daily_quota"
	ViolationAuthFailures = "auth_failures"

	ActionBlocked = "blocked"
	ActionLogged  = "logged"
)

// Identifier types a limit can key on.
const (
	IdentifierUser       = "user_id"
	IdentifierIP         = "ip"
	IdentifierEmail      = "email"
	IdentifierIPUserPair = "ip_user_pair"
)

// RateLimitViolation is written every time a request is denied (or would have
// been, in shadow mode).
type RateLimitViolation struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID         *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	IdentifierType string              `bson:"identifier_type" json:"identifier_type"`
	Identifier     string              `bson:"identifier" json:"identifier"`
	Feature        string              `bson:"feature" json:"feature"`
	Endpoint       string              `bson:"endpoint" json:"endpoint"`
	ViolationType  string              `bson:"violation_type" json:"violation_type"`
	LimitThreshold int                 `bson:"limit_threshold" json:"limit_threshold"`
	ActualCount    int                 `bson:"actual_count" json:"actual_count"`
	WindowStart    time.Time           `bson:"window_start" json:"window_start"`
	WindowEnd      time.Time           `bson:"window_end" json:"window_end"`
	IP             string              `bson:"ip,omitempty" json:"ip,omitempty"`
	UserAgent      string              `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	ActionTaken    string              `bson:"action_taken" json:"action_taken"`
	CreatedAt      time.Time           `bson:"created_at" json:"created_at"`
}

// FeatureUsage is the per-day counter for a user's use of a metered feature.
type FeatureUsage struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Feature   string             `bson:"feature" json:"feature"`
	Day       string             `bson:"day" json:"day"` // UTC, YYYY-MM-DD
	Count     int                `bson:"count" json:"count"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Whitelist scopes.
const (
	WhitelistUser = "user"
	WhitelistIP   = "ip"
	WhitelistPlan = "plan"
)

// WhitelistRule relaxes limits for a user, IP, or plan. An empty Feature applies
// to every feature.
type WhitelistRule struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Scope           string             `bson:"scope" json:"scope"`
	Value           string             `bson:"value" json:"value"`
	Feature         string             `bson:"feature,omitempty" json:"feature,omitempty"`
	QuotaMultiplier float64            `bson:"quota_multiplier,omitempty" json:"quota_multiplier,omitempty"`
	Unlimited       bool               `bson:"unlimited" json:"unlimited"`
	Reason          string             `bson:"reason,omitempty" json:"reason,omitempty"`
	ExpiresAt       *time.Time         `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
}
