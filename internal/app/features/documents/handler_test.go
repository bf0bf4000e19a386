package documents_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/zerlake/thesisai/internal/app/features/documents"
	uierrors "github.com/zerlake/thesisai/internal/app/features/errors"
	relationshipstore "github.com/zerlake/thesisai/internal/app/store/relationships"
	"github.com/zerlake/thesisai/internal/app/system/storage"
	"github.com/zerlake/thesisai/internal/domain/models"
	"github.com/zerlake/thesisai/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type freeSlots struct{}

func (freeSlots) TakeSlot(context.Context, primitive.ObjectID, string) error   { return nil }
func (freeSlots) ReturnSlot(context.Context, primitive.ObjectID, string) error { return nil }

func newRouter(t *testing.T, db *mongo.Database, presigner *storage.Presigner) chi.Router {
	t.Helper()
	logger := zap.NewNop()
	return documents.Routes(documents.NewHandler(db, presigner, nil, uierrors.NewErrorLogger(logger), logger))
}

func do(t *testing.T, r chi.Router, method, target string, body any, user testutil.TestUser) *testutil.ResponseRecorder {
	t.Helper()
	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.NewAuthenticatedRequest(t, method, target, body, user))
	return rec
}

func link(t *testing.T, db *mongo.Database, kind string, student, mentor testutil.TestUser) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	links := relationshipstore.New(db, zap.NewNop())
	req, err := links.CreateRequest(ctx, kind, student.OID(), mentor.OID(), "")
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if _, err := links.Accept(ctx, kind, req.ID, mentor.OID(), freeSlots{}); err != nil {
		t.Fatalf("Accept: %v", err)
	}
}

func TestCreate_Validation(t *testing.T) {
	r := newRouter(t, testutil.OfflineDB(t), nil)
	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"missing title", map[string]any{"content": "<p>x</p>"}, "title"},
		{"markup-only title", map[string]any{"title": "<b></b>"}, "title"},
		{"unknown status", map[string]any{"title": "Chapter 1", "status": "published"}, "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, http.MethodPost, "/", tt.body, testutil.StudentUser())
			rec.AssertStatus(t, http.StatusBadRequest)
			env := rec.Envelope(t, nil)
			if _, ok := env.Error.Details[tt.field]; !ok {
				t.Errorf("expected %q in %v", tt.field, env.Error.Details)
			}
		})
	}
}

func TestAttach_StorageNotConfigured(t *testing.T) {
	r := newRouter(t, testutil.OfflineDB(t), nil)
	rec := do(t, r, http.MethodPost, "/"+primitive.NewObjectID().Hex()+"/attachments",
		map[string]any{"file_name": "chapter1.pdf"}, testutil.StudentUser())
	rec.AssertStatus(t, http.StatusServiceUnavailable)
	rec.AssertErrorCode(t, documents.CodeStorageUnavailable)
}

func TestReadAccess(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := newRouter(t, db, nil)
	owner := testutil.StudentUser()
	advisor, critic := testutil.AdvisorUser(), testutil.CriticUser()
	link(t, db, models.KindAdvisor, owner, advisor)

	rec := do(t, r, http.MethodPost, "/", map[string]any{"title": "Thesis", "content": "<p>Intro</p><img src=x onerror=alert(1)>"}, owner)
	rec.AssertStatus(t, http.StatusCreated)
	var doc models.Document
	rec.Envelope(t, &doc)
	if doc.Version != 1 || doc.Status != models.DocumentDraft {
		t.Fatalf("created = %+v", doc)
	}

	target := "/" + doc.ID.Hex()
	tests := []struct {
		name   string
		user   testutil.TestUser
		status int
	}{
		{"owner", owner, http.StatusOK},
		{"linked advisor", advisor, http.StatusOK},
		{"unlinked critic", critic, http.StatusForbidden},
		{"other student", testutil.StudentUser(), http.StatusForbidden},
		{"admin", testutil.AdminUser(), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			do(t, r, http.MethodGet, target, nil, tt.user).AssertStatus(t, tt.status)
		})
	}

	do(t, r, http.MethodGet, "/"+primitive.NewObjectID().Hex(), nil, owner).AssertStatus(t, http.StatusNotFound)
	do(t, r, http.MethodPatch, target, map[string]any{"version": 1, "title": "Mine"}, advisor).AssertStatus(t, http.StatusNotFound)
}

func TestVersioning(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := newRouter(t, db, nil)
	owner := testutil.StudentUser()

	rec := do(t, r, http.MethodPost, "/", map[string]any{"title": "Draft A", "content": "alpha"}, owner)
	rec.AssertStatus(t, http.StatusCreated)
	var doc models.Document
	rec.Envelope(t, &doc)
	target := "/" + doc.ID.Hex()

	rec = do(t, r, http.MethodPatch, target, map[string]any{"version": 1, "title": "Draft B", "content": "beta"}, owner)
	rec.AssertStatus(t, http.StatusOK)
	rec.Envelope(t, &doc)
	if doc.Version != 2 || doc.Title != "Draft B" {
		t.Fatalf("updated = %+v", doc)
	}

	rec = do(t, r, http.MethodPatch, target, map[string]any{"version": 1, "content": "stale"}, owner)
	rec.AssertStatus(t, http.StatusConflict)
	rec.AssertErrorCode(t, documents.CodeVersionConflict)

	rec = do(t, r, http.MethodGet, target+"/versions", nil, owner)
	rec.AssertStatus(t, http.StatusOK)
	var versions []models.DocumentVersion
	rec.Envelope(t, &versions)
	if len(versions) != 1 || versions[0].Version != 1 || versions[0].Title != "Draft A" {
		t.Fatalf("versions = %+v", versions)
	}

	rec = do(t, r, http.MethodPost, target+"/versions/1/restore", nil, owner)
	rec.AssertStatus(t, http.StatusOK)
	rec.Envelope(t, &doc)
	if doc.Version != 3 || doc.Title != "Draft A" || doc.Content != "alpha" {
		t.Errorf("restored = %+v", doc)
	}
	do(t, r, http.MethodPost, target+"/versions/9/restore", nil, owner).AssertStatus(t, http.StatusNotFound)
	do(t, r, http.MethodPost, target+"/versions/zero/restore", nil, owner).AssertStatus(t, http.StatusBadRequest)

	do(t, r, http.MethodDelete, target, nil, owner).AssertStatus(t, http.StatusOK)
	do(t, r, http.MethodGet, target, nil, owner).AssertStatus(t, http.StatusNotFound)
}

func TestAttach_PresignsUpload(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	presigner, err := storage.New(ctx, storage.Config{
		Region: "ap-southeast-1", Bucket: "thesis-files", AccessKey: "AKIDEXAMPLE", SecretKey: "secret",
	})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	db := testutil.SetupTestDB(t)
	r := newRouter(t, db, presigner)
	owner := testutil.StudentUser()

	rec := do(t, r, http.MethodPost, "/", map[string]any{"title": "Thesis"}, owner)
	rec.AssertStatus(t, http.StatusCreated)
	var doc models.Document
	rec.Envelope(t, &doc)

	rec = do(t, r, http.MethodPost, "/"+doc.ID.Hex()+"/attachments", map[string]any{"file_name": "survey data.csv", "content_type": "text/csv"}, owner)
	rec.AssertStatus(t, http.StatusCreated)
	var out struct {
		Upload     storage.Upload    `json:"upload"`
		Attachment models.Attachment `json:"attachment"`
	}
	rec.Envelope(t, &out)
	if out.Upload.URL == "" || out.Upload.Key != out.Attachment.Key {
		t.Errorf("upload = %+v, attachment = %+v", out.Upload, out.Attachment)
	}

	do(t, r, http.MethodPost, "/"+doc.ID.Hex()+"/attachments", map[string]any{"file_name": "x.pdf"}, testutil.StudentUser()).
		AssertStatus(t, http.StatusNotFound)
}
