package flashcardstore_test

import (
	"errors"
	"testing"

	flashcardstore "github.com/zerlake/thesisai/internal/app/store/flashcards"
	"github.com/zerlake/thesisai/internal/domain/models"
	"github.com/zerlake/thesisai/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDeckLifecycle(t *testing.T) {
	s := flashcardstore.New(testutil.SetupTestDB(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	cards := []models.Flashcard{{Front: "H0", Back: "null hypothesis"}}
	d, err := s.Create(ctx, owner, "Stats", "statistics", cards)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, err := s.List(ctx, owner)
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %d, %v", len(list), err)
	}
	if len(list[0].Cards) != 0 {
		t.Error("List should omit cards")
	}

	upd, err := s.Replace(ctx, owner, d.ID, "Stats II", append(cards, models.Flashcard{Front: "p", Back: "probability"}))
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if upd.Title != "Stats II" || len(upd.Cards) != 2 {
		t.Errorf("replaced = %+v", upd)
	}

	if _, err := s.Get(ctx, primitive.NewObjectID(), d.ID); !errors.Is(err, flashcardstore.ErrNotFound) {
		t.Errorf("foreign Get err = %v", err)
	}
	if err := s.Delete(ctx, owner, d.ID); err != nil {
		t.Errorf("Delete: %v", err)
	}
}
