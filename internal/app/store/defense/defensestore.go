package defensestore

import (
	"context"
	"time"

	"github.com/zerlake/thesisai/internal/app/store/owned"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	Collection          = "defense_question_sets"
	ResponsesCollection = "defense_responses"
)

var ErrNotFound = owned.ErrNotFound

type Store struct {
	sets      *owned.Collection[models.DefenseQuestionSet]
	responses *owned.Collection[models.DefenseResponse]
}

func New(db *mongo.Database) *Store {
	return &Store{
		sets:      owned.New[models.DefenseQuestionSet](db, Collection),
		responses: owned.New[models.DefenseResponse](db, ResponsesCollection),
	}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	if err := s.sets.EnsureIndexes(ctx); err != nil {
		return err
	}
	return s.responses.EnsureIndexes(ctx)
}

// Create stores a question set.
func (s *Store) Create(ctx context.Context, ownerID primitive.ObjectID, title, thesisTitle string, questions []models.DefenseQuestion) (models.DefenseQuestionSet, error) {
	set := models.DefenseQuestionSet{
		ID:          primitive.NewObjectID(),
		OwnerID:     ownerID,
		Title:       title,
		ThesisTitle: thesisTitle,
		Questions:   questions,
		CreatedAt:   time.Now().UTC(),
	}
	return set, s.sets.Insert(ctx, set)
}

func (s *Store) Get(ctx context.Context, ownerID, id primitive.ObjectID) (*models.DefenseQuestionSet, error) {
	return s.sets.Get(ctx, ownerID, id)
}

// List returns set headers without their questions.
func (s *Store) List(ctx context.Context, ownerID primitive.ObjectID) ([]models.DefenseQuestionSet, error) {
	return s.sets.List(ctx, ownerID, 200, bson.M{"questions": 0})
}

func (s *Store) Delete(ctx context.Context, ownerID, id primitive.ObjectID) error {
	return s.sets.Delete(ctx, ownerID, id)
}

func (s *Store) Count(ctx context.Context, ownerID primitive.ObjectID) (int64, error) {
	return s.sets.Count(ctx, ownerID)
}

// CreateResponse stores a prepared answer, assigning its id and time.
func (s *Store) CreateResponse(ctx context.Context, resp models.DefenseResponse) (models.DefenseResponse, error) {
	resp.ID = primitive.NewObjectID()
	resp.CreatedAt = time.Now().UTC()
	return resp, s.responses.Insert(ctx, resp)
}

// ListResponses returns the owner's answers, newest first, optionally for
// one instrument only.
func (s *Store) ListResponses(ctx context.Context, ownerID primitive.ObjectID, instrumentName string) ([]models.DefenseResponse, error) {
	var where bson.M
	if instrumentName != "" {
		where = bson.M{"instrument_name": instrumentName}
	}
	return s.responses.ListWhere(ctx, ownerID, where, 200, nil)
}

func (s *Store) DeleteResponse(ctx context.Context, ownerID, id primitive.ObjectID) error {
	return s.responses.Delete(ctx, ownerID, id)
}
