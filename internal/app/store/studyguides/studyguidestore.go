package studyguidestore

import (
	"context"
	"time"

	"github.com/zerlake/thesisai/internal/app/store/owned"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const Collection = "study_guides"

var ErrNotFound = owned.ErrNotFound

type Store struct {
	guides *owned.Collection[models.StudyGuide]
}

func New(db *mongo.Database) *Store {
	return &Store{guides: owned.New[models.StudyGuide](db, Collection)}
}

func (s *Store) EnsureIndexes(ctx context.Context) error { return s.guides.EnsureIndexes(ctx) }

// Create stores a guide.
func (s *Store) Create(ctx context.Context, ownerID primitive.ObjectID, title, topic string, sections []models.StudyGuideSection) (models.StudyGuide, error) {
	g := models.StudyGuide{
		ID:        primitive.NewObjectID(),
		OwnerID:   ownerID,
		Title:     title,
		Topic:     topic,
		Sections:  sections,
		CreatedAt: time.Now().UTC(),
	}
	return g, s.guides.Insert(ctx, g)
}

func (s *Store) Get(ctx context.Context, ownerID, id primitive.ObjectID) (*models.StudyGuide, error) {
	return s.guides.Get(ctx, ownerID, id)
}

// List returns guide headers without their sections.
func (s *Store) List(ctx context.Context, ownerID primitive.ObjectID) ([]models.StudyGuide, error) {
	return s.guides.List(ctx, ownerID, 200, bson.M{"sections": 0})
}

func (s *Store) Delete(ctx context.Context, ownerID, id primitive.ObjectID) error {
	return s.guides.Delete(ctx, ownerID, id)
}

func (s *Store) Count(ctx context.Context, ownerID primitive.ObjectID) (int64, error) {
	return s.guides.Count(ctx, ownerID)
}
