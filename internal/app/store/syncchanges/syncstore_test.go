package syncstore_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	syncstore "github.com/zerlake/thesisai/internal/app/store/syncchanges"
	"github.com/zerlake/thesisai/internal/domain/models"
	"github.com/zerlake/thesisai/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func change(clientID string) models.SyncChange {
	return models.SyncChange{
		ClientID: clientID,
		Entity:   "document",
		EntityID: primitive.NewObjectID().Hex(),
		Op:       models.SyncUpsert,
		Payload:  bson.M{"title": "offline edit"},
		ClientTS: time.Now().UTC(),
	}
}

func TestPush_Idempotent(t *testing.T) {
	s := syncstore.New(testutil.SetupTestDB(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := s.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}

	user := primitive.NewObjectID()
	a, b := uuid.NewString(), uuid.NewString()

	res, err := s.Push(ctx, user, []models.SyncChange{change(a), change(b)})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if res.Accepted != 2 || res.Skipped != 0 || res.Cursor == "" {
		t.Errorf("first push = %+v", res)
	}

	res, err = s.Push(ctx, user, []models.SyncChange{change(a), change(uuid.NewString())})
	if err != nil {
		t.Fatalf("second Push: %v", err)
	}
	if res.Accepted != 1 || res.Skipped != 1 {
		t.Errorf("second push = %+v, want 1 accepted 1 skipped", res)
	}

	// another user may reuse a client id
	res, err = s.Push(ctx, primitive.NewObjectID(), []models.SyncChange{change(a)})
	if err != nil || res.Accepted != 1 {
		t.Errorf("other user push = %+v, %v", res, err)
	}
}

func TestPull_Cursor(t *testing.T) {
	s := syncstore.New(testutil.SetupTestDB(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := primitive.NewObjectID()
	for i := 0; i < 3; i++ {
		if _, err := s.Push(ctx, user, []models.SyncChange{change(uuid.NewString())}); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}

	first, cursor, err := s.Pull(ctx, user, primitive.NilObjectID, 2)
	if err != nil || len(first) != 2 {
		t.Fatalf("Pull = %d, %v", len(first), err)
	}
	since, _ := primitive.ObjectIDFromHex(cursor)
	rest, cursor2, err := s.Pull(ctx, user, since, 10)
	if err != nil || len(rest) != 1 {
		t.Fatalf("Pull rest = %d, %v", len(rest), err)
	}
	since2, _ := primitive.ObjectIDFromHex(cursor2)
	empty, cursor3, _ := s.Pull(ctx, user, since2, 10)
	if len(empty) != 0 || cursor3 != cursor2 {
		t.Errorf("empty pull = %d rows, cursor %q want %q", len(empty), cursor3, cursor2)
	}
}
