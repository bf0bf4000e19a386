package profilestore

import (
	"context"
	"errors"

	"github.com/zerlake/thesisai/internal/app/system/auth"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Fetcher implements auth.UserFetcher so role and plan changes apply on the
// caller's next request.
type Fetcher struct {
	profiles *mongo.Collection
}

// NewFetcher creates a Fetcher over db.
func NewFetcher(db *mongo.Database) *Fetcher {
	return &Fetcher{profiles: db.Collection(Collection)}
}

// FetchUser returns nil without error when the profile is gone or disabled.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) (*auth.SessionUser, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var p models.Profile
	proj := options.FindOne().SetProjection(bson.M{
		"full_name": 1, "email": 1, "role": 1, "plan": 1, "status": 1,
	})
	if err := f.profiles.FindOne(ctx, bson.M{"_id": oid}, proj).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	if p.Status == models.StatusDisabled {
		return nil, nil
	}
	return &auth.SessionUser{
		ID:    p.ID.Hex(),
		Name:  p.FullName,
		Email: p.Email,
		Role:  p.Role,
		Plan:  p.Plan,
	}, nil
}
