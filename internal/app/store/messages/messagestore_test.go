package messagestore_test

import (
	"errors"
	"testing"

	messagestore "github.com/zerlake/thesisai/internal/app/store/messages"
	"github.com/zerlake/thesisai/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestConversation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := messagestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	stu, adv, other := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	first, _ := s.Send(ctx, stu, adv, "chapter 1 attached")
	second, _ := s.Send(ctx, adv, stu, "looks good")
	if _, err := s.Send(ctx, other, stu, "unrelated"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	conv, err := s.Conversation(ctx, stu, adv, primitive.NilObjectID, 0)
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	if len(conv) != 2 || conv[0].ID != second.ID {
		t.Fatalf("conversation = %+v", conv)
	}
	older, _ := s.Conversation(ctx, adv, stu, second.ID, 10)
	if len(older) != 1 || older[0].ID != first.ID {
		t.Errorf("paged = %+v", older)
	}
}

func TestReadAndDeleteOwnership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := messagestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	from, to := primitive.NewObjectID(), primitive.NewObjectID()
	m, _ := s.Send(ctx, from, to, "hello")

	n, _ := s.UnreadCount(ctx, to)
	if n != 1 {
		t.Errorf("UnreadCount = %d, want 1", n)
	}
	if err := s.MarkRead(ctx, m.ID, from); !errors.Is(err, messagestore.ErrNotFound) {
		t.Errorf("sender MarkRead err = %v", err)
	}
	if err := s.MarkRead(ctx, m.ID, to); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	n, _ = s.UnreadCount(ctx, to)
	if n != 0 {
		t.Errorf("UnreadCount after read = %d", n)
	}
	if err := s.Delete(ctx, m.ID, to); !errors.Is(err, messagestore.ErrNotFound) {
		t.Errorf("recipient Delete err = %v", err)
	}
	if err := s.Delete(ctx, m.ID, from); err != nil {
		t.Errorf("Delete: %v", err)
	}
}
