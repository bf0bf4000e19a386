package relationshipstore_test

import (
	"errors"
	"testing"

	profilestore "github.com/zerlake/thesisai/internal/app/store/profiles"
	relationshipstore "github.com/zerlake/thesisai/internal/app/store/relationships"
	"github.com/zerlake/thesisai/internal/domain/models"
	"github.com/zerlake/thesisai/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	rel      *relationshipstore.Store
	profiles *profilestore.Store
	student  models.Profile
	mentor   models.Profile
}

func setup(t *testing.T, slots int) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e := env{
		rel:      relationshipstore.New(db, zap.NewNop()),
		profiles: profilestore.New(db),
	}
	if err := e.rel.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}
	var err error
	if e.student, err = e.profiles.Create(ctx, models.Profile{Email: "stu@uni.edu", FullName: "Stu"}); err != nil {
		t.Fatalf("create student: %v", err)
	}
	if e.mentor, err = e.profiles.Create(ctx, models.Profile{Email: "adv@uni.edu", FullName: "Adv", Role: models.RoleAdvisor, AdvisorSlots: slots}); err != nil {
		t.Fatalf("create mentor: %v", err)
	}
	return e
}

func countLinks(t *testing.T, db *mongo.Database) int64 {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	n, err := db.Collection(relationshipstore.AdvisorCollection).CountDocuments(ctx, map[string]any{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestCreateRequest_DuplicatePending(t *testing.T) {
	e := setup(t, 1)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := e.rel.CreateRequest(ctx, models.KindAdvisor, e.student.ID, e.mentor.ID, "hi"); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	_, err := e.rel.CreateRequest(ctx, models.KindAdvisor, e.student.ID, e.mentor.ID, "again")
	if !errors.Is(err, relationshipstore.ErrPendingExists) {
		t.Errorf("err = %v, want ErrPendingExists", err)
	}
}

func TestAccept_TakesSlotOnce(t *testing.T) {
	e := setup(t, 2)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	req, err := e.rel.CreateRequest(ctx, models.KindAdvisor, e.student.ID, e.mentor.ID, "")
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	rel, err := e.rel.Accept(ctx, models.KindAdvisor, req.ID, e.mentor.ID, e.profiles)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if rel.StudentID != e.student.ID || rel.MentorID != e.mentor.ID {
		t.Errorf("rel = %+v", rel)
	}

	_, err = e.rel.Accept(ctx, models.KindAdvisor, req.ID, e.mentor.ID, e.profiles)
	if !errors.Is(err, relationshipstore.ErrNotPending) {
		t.Errorf("second Accept err = %v, want ErrNotPending", err)
	}

	m, _ := e.profiles.GetByID(ctx, e.mentor.ID)
	if m.AdvisorSlots != 1 {
		t.Errorf("AdvisorSlots = %d, want 1", m.AdvisorSlots)
	}
	linked, err := e.rel.Linked(ctx, models.KindAdvisor, e.student.ID, e.mentor.ID)
	if err != nil || !linked {
		t.Errorf("Linked = %v, %v", linked, err)
	}
	got, _ := e.rel.GetRequest(ctx, models.KindAdvisor, req.ID)
	if got.Status != models.RequestAccepted || got.DecidedAt == nil {
		t.Errorf("request = %+v", got)
	}
}

func TestAccept_NoSlotsLeavesNoLink(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rel := relationshipstore.New(db, zap.NewNop())
	profiles := profilestore.New(db)
	student, _ := profiles.Create(ctx, models.Profile{Email: "s@uni.edu"})
	mentor, _ := profiles.Create(ctx, models.Profile{Email: "m@uni.edu", Role: models.RoleAdvisor})

	req, err := rel.CreateRequest(ctx, models.KindAdvisor, student.ID, mentor.ID, "")
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	_, err = rel.Accept(ctx, models.KindAdvisor, req.ID, mentor.ID, profiles)
	if !errors.Is(err, profilestore.ErrNoSlots) {
		t.Fatalf("err = %v, want ErrNoSlots", err)
	}
	if n := countLinks(t, db); n != 0 {
		t.Errorf("links = %d, want 0", n)
	}
	got, _ := rel.GetRequest(ctx, models.KindAdvisor, req.ID)
	if got.Status != models.RequestPending {
		t.Errorf("status = %q, want pending", got.Status)
	}
}

func TestAccept_WrongMentor(t *testing.T) {
	e := setup(t, 1)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	req, _ := e.rel.CreateRequest(ctx, models.KindAdvisor, e.student.ID, e.mentor.ID, "")
	_, err := e.rel.Accept(ctx, models.KindAdvisor, req.ID, primitive.NewObjectID(), e.profiles)
	if !errors.Is(err, relationshipstore.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeclineAndCancel(t *testing.T) {
	e := setup(t, 1)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	req, _ := e.rel.CreateRequest(ctx, models.KindAdvisor, e.student.ID, e.mentor.ID, "")

	// the student cannot decline, only the mentor
	if _, err := e.rel.Decline(ctx, models.KindAdvisor, req.ID, e.student.ID); !errors.Is(err, relationshipstore.ErrNotFound) {
		t.Errorf("student Decline err = %v, want ErrNotFound", err)
	}
	got, err := e.rel.Decline(ctx, models.KindAdvisor, req.ID, e.mentor.ID)
	if err != nil {
		t.Fatalf("Decline: %v", err)
	}
	if got.Status != models.RequestDeclined {
		t.Errorf("status = %q", got.Status)
	}
	if _, err := e.rel.Cancel(ctx, models.KindAdvisor, req.ID, e.student.ID); !errors.Is(err, relationshipstore.ErrNotPending) {
		t.Errorf("Cancel after decline err = %v, want ErrNotPending", err)
	}

	// declined requests do not block a new one
	if _, err := e.rel.CreateRequest(ctx, models.KindAdvisor, e.student.ID, e.mentor.ID, ""); err != nil {
		t.Errorf("CreateRequest after decline: %v", err)
	}
}

func TestRemoveAndConnected(t *testing.T) {
	e := setup(t, 1)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	req, _ := e.rel.CreateRequest(ctx, models.KindAdvisor, e.student.ID, e.mentor.ID, "")
	if _, err := e.rel.Accept(ctx, models.KindAdvisor, req.ID, e.mentor.ID, e.profiles); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	ok, err := e.rel.Connected(ctx, e.mentor.ID, e.student.ID)
	if err != nil || !ok {
		t.Fatalf("Connected = %v, %v", ok, err)
	}
	n, _ := e.rel.CountFor(ctx, e.student.ID)
	if n != 1 {
		t.Errorf("CountFor = %d, want 1", n)
	}
	links, _ := e.rel.ListFor(ctx, models.KindAdvisor, e.mentor.ID)
	if len(links) != 1 {
		t.Errorf("ListFor = %d, want 1", len(links))
	}

	if _, err := e.rel.CreateRequest(ctx, models.KindAdvisor, e.student.ID, e.mentor.ID, ""); !errors.Is(err, relationshipstore.ErrAlreadyLinked) {
		t.Errorf("CreateRequest when linked err = %v", err)
	}

	if err := e.rel.Remove(ctx, models.KindAdvisor, e.student.ID, e.mentor.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := e.rel.Remove(ctx, models.KindAdvisor, e.student.ID, e.mentor.ID); !errors.Is(err, relationshipstore.ErrLinkNotFound) {
		t.Errorf("second Remove err = %v", err)
	}
}
