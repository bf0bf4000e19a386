package payoutstore_test

import (
	"errors"
	"testing"

	ledgerstore "github.com/zerlake/thesisai/internal/app/store/ledger"
	payoutstore "github.com/zerlake/thesisai/internal/app/store/payouts"
	"github.com/zerlake/thesisai/internal/domain/models"
	"github.com/zerlake/thesisai/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func setup(t *testing.T, credit int64) (*payoutstore.Store, *ledgerstore.Store, primitive.ObjectID) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ledger := ledgerstore.New(db)
	s := payoutstore.New(db, ledger, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := primitive.NewObjectID()
	if credit > 0 {
		if _, err := ledger.Credit(ctx, user, credit, models.SourceReferral, primitive.NewObjectID(), ""); err != nil {
			t.Fatalf("Credit: %v", err)
		}
	}
	return s, ledger, user
}

func TestRequest_DebitsBalance(t *testing.T) {
	s, ledger, user := setup(t, 100000)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p, err := s.Request(ctx, user, 60000, models.MethodGCash, "0917-000-0000")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if p.Status != models.PayoutPending {
		t.Errorf("status = %q", p.Status)
	}
	bal, _ := ledger.Balance(ctx, user)
	if bal != 40000 {
		t.Errorf("balance = %d, want 40000", bal)
	}

	_, err = s.Request(ctx, user, 50000, models.MethodGCash, "0917-000-0000")
	if !errors.Is(err, payoutstore.ErrInsufficientBalance) {
		t.Errorf("err = %v, want ErrInsufficientBalance", err)
	}
	list, _ := s.ListByUser(ctx, user)
	if len(list) != 1 {
		t.Errorf("requests = %d, want 1", len(list))
	}
}

func TestTransitions(t *testing.T) {
	s, _, user := setup(t, 100000)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	admin := primitive.NewObjectID()

	p, err := s.Request(ctx, user, 10000, models.MethodPayPal, "me@pp.test")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}

	// processed needs approved first
	if _, err := s.Process(ctx, p.ID, admin); !errors.Is(err, payoutstore.ErrInvalidTransition) {
		t.Errorf("Process pending err = %v", err)
	}
	got, err := s.Approve(ctx, p.ID, admin)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if got.ReviewerID == nil || *got.ReviewerID != admin {
		t.Errorf("reviewer = %v", got.ReviewerID)
	}
	if _, err := s.Approve(ctx, p.ID, admin); !errors.Is(err, payoutstore.ErrInvalidTransition) {
		t.Errorf("double Approve err = %v", err)
	}
	if _, err := s.Reject(ctx, p.ID, admin, "late"); !errors.Is(err, payoutstore.ErrInvalidTransition) {
		t.Errorf("Reject approved err = %v", err)
	}
	got, err = s.Process(ctx, p.ID, admin)
	if err != nil || got.Status != models.PayoutProcessed {
		t.Fatalf("Process = %+v, %v", got, err)
	}

	if _, err := s.Approve(ctx, primitive.NewObjectID(), admin); !errors.Is(err, payoutstore.ErrNotFound) {
		t.Errorf("missing Approve err = %v", err)
	}
}

func TestRejectAndCancelRestoreBalance(t *testing.T) {
	s, ledger, user := setup(t, 100000)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	admin := primitive.NewObjectID()

	a, _ := s.Request(ctx, user, 30000, models.MethodBankTransfer, "BPI 1234")
	b, _ := s.Request(ctx, user, 20000, models.MethodBankTransfer, "BPI 1234")

	if _, err := s.Reject(ctx, a.ID, admin, "name mismatch"); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	// only the requester may cancel
	if _, err := s.Cancel(ctx, b.ID, primitive.NewObjectID()); !errors.Is(err, payoutstore.ErrNotFound) {
		t.Errorf("foreign Cancel err = %v", err)
	}
	got, err := s.Cancel(ctx, b.ID, user)
	if err != nil || got.Status != models.PayoutCancelled {
		t.Fatalf("Cancel = %+v, %v", got, err)
	}

	bal, _ := ledger.Balance(ctx, user)
	if bal != 100000 {
		t.Errorf("balance = %d, want 100000", bal)
	}
	pending, _ := s.ListAll(ctx, models.PayoutPending, 0)
	if len(pending) != 0 {
		t.Errorf("pending = %d, want 0", len(pending))
	}
}
