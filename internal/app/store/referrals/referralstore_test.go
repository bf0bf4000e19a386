package referralstore_test

import (
	"errors"
	"testing"

	referralstore "github.com/zerlake/thesisai/internal/app/store/referrals"
	"github.com/zerlake/thesisai/internal/domain/models"
	"github.com/zerlake/thesisai/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSummarize(t *testing.T) {
	events := []models.ReferralEvent{
		{EventType: models.ReferralSignup, Status: models.ReferralRecorded},
		{EventType: models.ReferralConversion, Commission: 5000, Status: models.ReferralRecorded},
		{EventType: models.ReferralConversion, Commission: 5000, Status: models.ReferralConfirmedFraud},
	}
	got := referralstore.Summarize(events)
	want := referralstore.Totals{Signups: 1, Conversions: 2, Commission: 5000}
	if got != want {
		t.Errorf("Summarize = %+v, want %+v", got, want)
	}
}

func TestRecordAndTransitions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := referralstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := s.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}

	referrer, referred := primitive.NewObjectID(), primitive.NewObjectID()
	e, err := s.Record(ctx, referrer, referred, models.ReferralConversion, 5000)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := s.Record(ctx, referrer, referred, models.ReferralConversion, 5000); !errors.Is(err, referralstore.ErrDuplicate) {
		t.Errorf("duplicate Record err = %v", err)
	}

	flagged, err := s.Flag(ctx, e.ID)
	if err != nil || flagged.Status != models.ReferralFlagged {
		t.Fatalf("Flag = %+v, %v", flagged, err)
	}
	if _, err := s.Flag(ctx, e.ID); !errors.Is(err, referralstore.ErrInvalidTransition) {
		t.Errorf("second Flag err = %v", err)
	}
	fraud, err := s.ConfirmFraud(ctx, e.ID)
	if err != nil || fraud.Status != models.ReferralConfirmedFraud {
		t.Fatalf("ConfirmFraud = %+v, %v", fraud, err)
	}
	if _, err := s.ConfirmFraud(ctx, primitive.NewObjectID()); !errors.Is(err, referralstore.ErrNotFound) {
		t.Errorf("missing ConfirmFraud err = %v", err)
	}

	list, _ := s.ListByReferrer(ctx, referrer)
	if len(list) != 1 {
		t.Errorf("ListByReferrer = %d, want 1", len(list))
	}
}
