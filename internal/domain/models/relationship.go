// internal/domain/models/relationship.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Relationship kinds. A kind selects the mentor role, the relationship
// collection, and the slot counter on the mentor's profile.
const (
	KindAdvisor = "advisor"
	KindCritic  = "critic"
)

// Relationship request status values.
const (
	RequestPending   = "pending"
	RequestAccepted  = "accepted"
	RequestDeclined  = "declined"
	RequestCancelled = "cancelled"
)

// Relationship links a student to a mentor (advisor or critic).
// Stored in advisor_student_relationships or critic_student_relationships.
type Relationship struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StudentID primitive.ObjectID `bson:"student_id" json:"student_id"`
	MentorID  primitive.ObjectID `bson:"mentor_id" json:"mentor_id"`
	RequestID primitive.ObjectID `bson:"request_id,omitempty" json:"request_id,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// RelationshipRequest is a student's request to be taken on by a mentor.
type RelationshipRequest struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Kind      string             `bson:"kind" json:"kind"`
	StudentID primitive.ObjectID `bson:"student_id" json:"student_id"`
	MentorID  primitive.ObjectID `bson:"mentor_id" json:"mentor_id"`
	Message   string             `bson:"message,omitempty" json:"message,omitempty"`
	Status    string             `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	DecidedAt *time.Time         `bson:"decided_at,omitempty" json:"decided_at,omitempty"`
}

// IsValidKind reports whether kind names a relationship kind.
func IsValidKind(kind string) bool {
	return kind == KindAdvisor || kind == KindCritic
}

// MentorRole returns the profile role that can serve as mentor for kind.
func MentorRole(kind string) string {
	if kind == KindCritic {
		return RoleCritic
	}
	return RoleAdvisor
}
