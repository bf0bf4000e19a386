package layoutstore

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

const Collection = "dashboard_layouts"

var ErrNotFound = errors.New("layout not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "is_default", Value: -1}, {Key: "updated_at", Value: -1}},
	})
	return err
}

// clearDefaults unsets is_default on userID's layouts other than keep.
func (s *Store) clearDefaults(ctx context.Context, userID, keep primitive.ObjectID) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"user_id": userID, "_id": bson.M{"$ne": keep}, "is_default": true},
		bson.M{"$set": bson.M{"is_default": false}})
	return err
}

// Create stores a layout. A default layout replaces the previous default.
func (s *Store) Create(ctx context.Context, userID primitive.ObjectID, name string, widgets []models.DashboardWidget, isDefault bool) (models.DashboardLayout, error) {
	now := time.Now().UTC()
	l := models.DashboardLayout{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Name:      name,
		Widgets:   widgets,
		IsDefault: isDefault,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if l.Widgets == nil {
		l.Widgets = []models.DashboardWidget{}
	}
	if _, err := s.c.InsertOne(ctx, l); err != nil {
		return models.DashboardLayout{}, err
	}
	if isDefault {
		if err := s.clearDefaults(ctx, userID, l.ID); err != nil {
			return models.DashboardLayout{}, err
		}
	}
	return l, nil
}

// List returns userID's layouts, default first.
func (s *Store) List(ctx context.Context, userID primitive.ObjectID) ([]models.DashboardLayout, error) {
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "is_default", Value: -1}, {Key: "updated_at", Value: -1}}).SetLimit(100))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.DashboardLayout{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces name, widgets and the default flag of userID's layout.
func (s *Store) Update(ctx context.Context, userID, id primitive.ObjectID, name string, widgets []models.DashboardWidget, isDefault bool) (*models.DashboardLayout, error) {
	if widgets == nil {
		widgets = []models.DashboardWidget{}
	}
	var l models.DashboardLayout
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"name": name, "widgets": widgets, "is_default": isDefault, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if isDefault {
		if err := s.clearDefaults(ctx, userID, id); err != nil {
			return nil, err
		}
	}
	return &l, nil
}

// Delete removes userID's layout.
func (s *Store) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
