package profilestore

import (
	"context"
	"errors"
	"strings"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"github.com/zerlake/thesisai/internal/app/system/normalize"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection holds one document per account.
const Collection = "profiles"

var (
	// ErrNotFound is returned when no profile matches.
	ErrNotFound = errors.New("profile not found")
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("a profile with this email already exists")
	// ErrNoSlots is returned when a mentor has no free slot for the kind.
	ErrNoSlots = errors.New("mentor has no free slots")

	errBadRole   = errors.New(`role must be "student"|"advisor"|"critic"|"admin"`)
	errBadPlan   = errors.New(`plan must be "free"|"pro"|"premium"|"institutional"`)
	errBadStatus = errors.New(`status must be "active"|"disabled"`)
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// EnsureIndexes creates the unique email and referral code indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email_ci", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_email_ci")},
		{Keys: bson.D{{Key: "referral_code", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_referral_code")},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "full_name", Value: 1}}},
	})
	return err
}

// NewReferralCode returns an 8 character upper-case code.
func NewReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Create inserts a profile after normalizing and validating it. A referral
// code is assigned when none is set.
func (s *Store) Create(ctx context.Context, p models.Profile) (models.Profile, error) {
	p.ID = primitive.NewObjectID()
	p.Email = normalize.Email(p.Email)
	p.EmailCI = text.Fold(p.Email)
	p.FullName = normalize.Name(p.FullName)
	if p.Role == "" {
		p.Role = models.RoleStudent
	}
	p.Role = normalize.Role(p.Role)
	p.Plan = normalize.Plan(p.Plan)
	p.Status = normalize.Status(p.Status)

	if !models.IsValidRole(p.Role) {
		return models.Profile{}, errBadRole
	}
	if !models.IsValidPlan(p.Plan) {
		return models.Profile{}, errBadPlan
	}
	if p.Status != models.StatusActive && p.Status != models.StatusDisabled {
		return models.Profile{}, errBadStatus
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	generated := p.ReferralCode == ""
	for attempt := 0; ; attempt++ {
		if generated {
			p.ReferralCode = NewReferralCode()
		}
		_, err := s.c.InsertOne(ctx, p)
		if err == nil {
			return p, nil
		}
		if !wafflemongo.IsDup(err) {
			return models.Profile{}, err
		}
		if !generated || attempt == 2 || s.emailTaken(ctx, p.EmailCI) {
			return models.Profile{}, ErrDuplicateEmail
		}
	}
}

func (s *Store) emailTaken(ctx context.Context, emailCI string) bool {
	n, err := s.c.CountDocuments(ctx, bson.M{"email_ci": emailCI}, options.Count().SetLimit(1))
	return err != nil || n > 0
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.Profile, error) {
	var p models.Profile
	if err := s.c.FindOne(ctx, filter).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetByID loads a profile.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Profile, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail loads a profile by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	return s.findOne(ctx, bson.M{"email_ci": text.Fold(normalize.Email(email))})
}

// GetByReferralCode loads the owner of a referral code.
func (s *Store) GetByReferralCode(ctx context.Context, code string) (*models.Profile, error) {
	return s.findOne(ctx, bson.M{"referral_code": strings.ToUpper(strings.TrimSpace(code))})
}

// UpdateName sets the display name.
func (s *Store) UpdateName(ctx context.Context, id primitive.ObjectID, fullName string) (*models.Profile, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Profile
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"full_name":  normalize.Name(fullName),
		"updated_at": time.Now().UTC(),
	}}, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// RoleUpdate changes an account's role, plan, or mentor slots. Nil fields are
// left alone.
type RoleUpdate struct {
	Role         *string
	Plan         *string
	Status       *string
	AdvisorSlots *int
	CriticSlots  *int
}

// UpdateRole applies upd and returns the profile as it was before and after.
func (s *Store) UpdateRole(ctx context.Context, id primitive.ObjectID, upd RoleUpdate) (before, after *models.Profile, err error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Role != nil {
		role := normalize.Role(*upd.Role)
		if !models.IsValidRole(role) {
			return nil, nil, errBadRole
		}
		set["role"] = role
	}
	if upd.Plan != nil {
		plan := normalize.Plan(*upd.Plan)
		if !models.IsValidPlan(plan) {
			return nil, nil, errBadPlan
		}
		set["plan"] = plan
	}
	if upd.Status != nil {
		st := normalize.Status(*upd.Status)
		if st != models.StatusActive && st != models.StatusDisabled {
			return nil, nil, errBadStatus
		}
		set["status"] = st
	}
	if upd.AdvisorSlots != nil {
		set["advisor_slots"] = max(*upd.AdvisorSlots, 0)
	}
	if upd.CriticSlots != nil {
		set["critic_slots"] = max(*upd.CriticSlots, 0)
	}

	var old models.Profile
	err = s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}).Decode(&old)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	after, err = s.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return &old, after, nil
}

// IsValidationError reports whether err came from field validation.
func IsValidationError(err error) bool {
	return errors.Is(err, errBadRole) || errors.Is(err, errBadPlan) || errors.Is(err, errBadStatus)
}

func slotField(kind string) string {
	if kind == models.KindCritic {
		return "critic_slots"
	}
	return "advisor_slots"
}

// TakeSlot consumes one of the mentor's slots for kind. It returns ErrNoSlots
// when the counter is already zero or the profile lacks the mentor role.
func (s *Store) TakeSlot(ctx context.Context, mentorID primitive.ObjectID, kind string) error {
	field := slotField(kind)
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": mentorID, "role": models.MentorRole(kind), field: bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{field: -1}, "$set": bson.M{"updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return ErrNoSlots
	}
	return nil
}

// ReturnSlot gives a slot back to the mentor.
func (s *Store) ReturnSlot(ctx context.Context, mentorID primitive.ObjectID, kind string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": mentorID},
		bson.M{"$inc": bson.M{slotField(kind): 1}, "$set": bson.M{"updated_at": time.Now().UTC()}},
	)
	return err
}

// Summary is the public view of a profile used to label other records.
type Summary struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	FullName string             `bson:"full_name" json:"full_name"`
	Email    string             `bson:"email" json:"email"`
	Role     string             `bson:"role" json:"role"`
}

// Summaries loads names for ids, keyed by id.
func (s *Store) Summaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]Summary, error) {
	out := make(map[primitive.ObjectID]Summary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	opts := options.Find().SetProjection(bson.M{"full_name": 1, "email": 1, "role": 1})
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var sm Summary
		if err := cur.Decode(&sm); err != nil {
			return nil, err
		}
		out[sm.ID] = sm
	}
	return out, cur.Err()
}

// CountByRole returns how many active profiles hold each role.
func (s *Store) CountByRole(ctx context.Context) (map[string]int64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": models.StatusActive}}},
		{{Key: "$group", Value: bson.M{"_id": "$role", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var rows []struct {
		Role string `bson:"_id"`
		N    int64  `bson:"n"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Role] = r.N
	}
	return out, nil
}
