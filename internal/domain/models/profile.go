// internal/domain/models/profile.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles a profile may hold.
const (
	RoleStudent = "student"
	RoleAdvisor = "advisor"
	RoleCritic  = "critic"
	RoleAdmin   = "admin"
)

// Subscription plans. Plan decides the daily feature quotas.
const (
	PlanFree          = "free"
	PlanPro           = "pro"
	PlanPremium       = "premium"
	PlanInstitutional = "institutional"
)

// Profile status values.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// Profile is a user account: students, advisors, critics, and admins.
//
// AdvisorSlots / CriticSlots count how many more students the profile can take on
// in that capacity. Accepting a relationship request consumes one slot; removing
// the relationship gives it back.
type Profile struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Email        string              `bson:"email" json:"email"`
	EmailCI      string              `bson:"email_ci" json:"-"` // folded, unique
	FullName     string              `bson:"full_name" json:"full_name"`
	Role         string              `bson:"role" json:"role"`
	Plan         string              `bson:"plan" json:"plan"`
	Status       string              `bson:"status" json:"status"`
	PasswordHash string              `bson:"password_hash,omitempty" json:"-"`
	ReferralCode string              `bson:"referral_code" json:"referral_code"`
	ReferredBy   *primitive.ObjectID `bson:"referred_by,omitempty" json:"referred_by,omitempty"`
	AdvisorSlots int                 `bson:"advisor_slots" json:"advisor_slots"`
	CriticSlots  int                 `bson:"critic_slots" json:"critic_slots"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleAdvisor, RoleCritic, RoleAdmin:
		return true
	}
	return false
}

// IsValidPlan reports whether plan is one of the known plans.
func IsValidPlan(plan string) bool {
	switch plan {
	case PlanFree, PlanPro, PlanPremium, PlanInstitutional:
		return true
	}
	return false
}
