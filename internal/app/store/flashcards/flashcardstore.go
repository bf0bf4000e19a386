package flashcardstore

import (
	"context"
	"time"

	"github.com/zerlake/thesisai/internal/app/store/owned"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const Collection = "flashcard_decks"

// ErrNotFound is owned.ErrNotFound.
var ErrNotFound = owned.ErrNotFound

type Store struct {
	decks *owned.Collection[models.FlashcardDeck]
}

func New(db *mongo.Database) *Store {
	return &Store{decks: owned.New[models.FlashcardDeck](db, Collection)}
}

func (s *Store) EnsureIndexes(ctx context.Context) error { return s.decks.EnsureIndexes(ctx) }

// Create stores a deck.
func (s *Store) Create(ctx context.Context, ownerID primitive.ObjectID, title, topic string, cards []models.Flashcard) (models.FlashcardDeck, error) {
	now := time.Now().UTC()
	d := models.FlashcardDeck{
		ID:        primitive.NewObjectID(),
		OwnerID:   ownerID,
		Title:     title,
		Topic:     topic,
		Cards:     cards,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return d, s.decks.Insert(ctx, d)
}

func (s *Store) Get(ctx context.Context, ownerID, id primitive.ObjectID) (*models.FlashcardDeck, error) {
	return s.decks.Get(ctx, ownerID, id)
}

// List returns deck headers without their cards.
func (s *Store) List(ctx context.Context, ownerID primitive.ObjectID) ([]models.FlashcardDeck, error) {
	return s.decks.List(ctx, ownerID, 200, bson.M{"cards": 0})
}

// Replace swaps the title and cards of a deck.
func (s *Store) Replace(ctx context.Context, ownerID, id primitive.ObjectID, title string, cards []models.Flashcard) (*models.FlashcardDeck, error) {
	return s.decks.Set(ctx, ownerID, id, bson.M{"title": title, "cards": cards, "updated_at": time.Now().UTC()})
}

func (s *Store) Delete(ctx context.Context, ownerID, id primitive.ObjectID) error {
	return s.decks.Delete(ctx, ownerID, id)
}

func (s *Store) Count(ctx context.Context, ownerID primitive.ObjectID) (int64, error) {
	return s.decks.Count(ctx, ownerID)
}
