package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures inserts test rows straight into the collections, bypassing the
// stores so tests can set up states the API would refuse.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateProfile inserts an active free-plan profile with role.
func (f *Fixtures) CreateProfile(ctx context.Context, fullName, email, role string) models.Profile {
	f.t.Helper()
	return f.insertProfile(ctx, models.Profile{FullName: fullName, Email: email, Role: role, Status: models.StatusActive})
}

// CreateMentor inserts an advisor or critic with slots open for its kind.
func (f *Fixtures) CreateMentor(ctx context.Context, fullName, email, role string, slots int) models.Profile {
	f.t.Helper()
	p := models.Profile{FullName: fullName, Email: email, Role: role, Status: models.StatusActive}
	if role == models.RoleCritic {
		p.CriticSlots = slots
	} else {
		p.AdvisorSlots = slots
	}
	return f.insertProfile(ctx, p)
}

// CreateDisabledProfile inserts a disabled student.
func (f *Fixtures) CreateDisabledProfile(ctx context.Context, fullName, email string) models.Profile {
	f.t.Helper()
	return f.insertProfile(ctx, models.Profile{FullName: fullName, Email: email, Role: models.RoleStudent, Status: models.StatusDisabled})
}

func (f *Fixtures) insertProfile(ctx context.Context, p models.Profile) models.Profile {
	f.t.Helper()
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.Email = strings.ToLower(p.Email)
	p.EmailCI = text.Fold(p.Email)
	p.Plan = models.PlanFree
	p.ReferralCode = strings.ToUpper(p.ID.Hex()[16:])
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := f.db.Collection("profiles").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test profile: %v", err)
	}
	return p
}

// Link records an accepted relationship of kind between student and mentor
// without touching the mentor's slots.
func (f *Fixtures) Link(ctx context.Context, kind string, student, mentor models.Profile) models.Relationship {
	f.t.Helper()
	coll := "advisor_student_relationships"
	if kind == models.KindCritic {
		coll = "critic_student_relationships"
	}
	rel := models.Relationship{
		ID:        primitive.NewObjectID(),
		StudentID: student.ID,
		MentorID:  mentor.ID,
		RequestID: primitive.NewObjectID(),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection(coll).InsertOne(ctx, rel); err != nil {
		f.t.Fatalf("failed to link test profiles: %v", err)
	}
	return rel
}

// UserFor returns the session identity of p.
func UserFor(p models.Profile) TestUser {
	return TestUser{ID: p.ID.Hex(), Name: p.FullName, Email: p.Email, Role: p.Role, Plan: p.Plan}
}
