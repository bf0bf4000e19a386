package documentstore_test

import (
	"errors"
	"testing"
	"time"

	documentstore "github.com/zerlake/thesisai/internal/app/store/documents"
	"github.com/zerlake/thesisai/internal/domain/models"
	"github.com/zerlake/thesisai/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newStore(t *testing.T) *documentstore.Store {
	t.Helper()
	s := documentstore.New(testutil.SetupTestDB(t), zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := s.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}
	return s
}

func strp(s string) *string { return &s }

func TestApply_VersionsAndConflicts(t *testing.T) {
	s := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	d, err := s.Create(ctx, owner, "Chapter 1", "<p>v1</p>", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.Version != 1 || d.Status != models.DocumentDraft {
		t.Fatalf("created = %+v", d)
	}

	got, err := s.Apply(ctx, d.ID, owner, 1, documentstore.Update{Content: strp("<p>v2</p>")})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.Version != 2 || got.Content != "<p>v2</p>" || got.Title != "Chapter 1" {
		t.Errorf("after Apply = %+v", got)
	}

	// stale version
	if _, err := s.Apply(ctx, d.ID, owner, 1, documentstore.Update{Content: strp("x")}); !errors.Is(err, documentstore.ErrVersionConflict) {
		t.Errorf("stale Apply err = %v, want ErrVersionConflict", err)
	}
	// not the owner
	if _, err := s.Apply(ctx, d.ID, primitive.NewObjectID(), 2, documentstore.Update{Content: strp("x")}); !errors.Is(err, documentstore.ErrNotFound) {
		t.Errorf("foreign Apply err = %v, want ErrNotFound", err)
	}

	versions, err := s.Versions(ctx, d.ID)
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	if len(versions) != 1 || versions[0].Version != 1 {
		t.Fatalf("versions = %+v", versions)
	}

	restored, err := s.Restore(ctx, d.ID, owner, 1)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Version != 3 || restored.Content != "<p>v1</p>" {
		t.Errorf("restored = %+v", restored)
	}
	if _, err := s.Restore(ctx, d.ID, owner, 42); !errors.Is(err, documentstore.ErrVersionNotFound) {
		t.Errorf("Restore missing err = %v", err)
	}
}

func TestListByOwner_Paging(t *testing.T) {
	s := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	for i := 0; i < 5; i++ {
		if _, err := s.Create(ctx, owner, "doc", "", ""); err != nil {
			t.Fatalf("Create: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	if _, err := s.Create(ctx, primitive.NewObjectID(), "someone else", "", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}

	page1, next, err := s.ListByOwner(ctx, owner, "", 3)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(page1) != 3 || next == "" {
		t.Fatalf("page1 = %d rows, next %q", len(page1), next)
	}
	page2, next2, err := s.ListByOwner(ctx, owner, next, 3)
	if err != nil {
		t.Fatalf("ListByOwner page2: %v", err)
	}
	if len(page2) != 2 || next2 != "" {
		t.Fatalf("page2 = %d rows, next %q", len(page2), next2)
	}
	seen := map[primitive.ObjectID]bool{}
	for _, d := range append(page1, page2...) {
		if seen[d.ID] {
			t.Errorf("document %v listed twice", d.ID)
		}
		seen[d.ID] = true
	}

	n, _ := s.CountByOwner(ctx, owner)
	if n != 5 {
		t.Errorf("CountByOwner = %d, want 5", n)
	}
}

func TestDeleteAndAttachment(t *testing.T) {
	s := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	d, _ := s.Create(ctx, owner, "Draft", "", "")
	att := models.Attachment{Key: "attachments/x.pdf", FileName: "x.pdf", ContentType: "application/pdf", CreatedAt: time.Now().UTC()}
	if err := s.AddAttachment(ctx, d.ID, owner, att); err != nil {
		t.Fatalf("AddAttachment: %v", err)
	}
	got, _ := s.Get(ctx, d.ID)
	if len(got.Attachments) != 1 || got.Attachments[0].Key != att.Key {
		t.Errorf("attachments = %+v", got.Attachments)
	}

	if err := s.Delete(ctx, d.ID, primitive.NewObjectID()); !errors.Is(err, documentstore.ErrNotFound) {
		t.Errorf("foreign Delete err = %v", err)
	}
	if err := s.Delete(ctx, d.ID, owner); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, d.ID); !errors.Is(err, documentstore.ErrNotFound) {
		t.Errorf("Get after delete err = %v", err)
	}
}
