package documents

import (
	"context"
	"errors"
	"net/http"

	documentstore "github.com/zerlake/thesisai/internal/app/store/documents"
	relationshipstore "github.com/zerlake/thesisai/internal/app/store/relationships"
	"github.com/zerlake/thesisai/internal/app/system/authz"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrForbidden means the document exists but the caller may not read it.
var ErrForbidden = errors.New("document is not shared with you")

// Reader describes how the caller got read access.
type Reader int

const (
	ReaderOwner Reader = iota
	ReaderMentor
	ReaderAdmin
)

// Access decides who may read a document: its owner, an advisor or critic
// linked to the owner, or an admin.
type Access struct {
	Docs  *documentstore.Store
	Links *relationshipstore.Store
}

// Readable loads the document when the caller may read it. It returns
// documentstore.ErrNotFound or ErrForbidden otherwise.
func (a *Access) Readable(ctx context.Context, r *http.Request, id primitive.ObjectID) (*models.Document, Reader, error) {
	uid, ok := authz.UserID(r)
	if !ok {
		return nil, 0, ErrForbidden
	}
	doc, err := a.Docs.Get(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	if doc.OwnerID == uid {
		return doc, ReaderOwner, nil
	}
	if authz.IsAdmin(r) {
		return doc, ReaderAdmin, nil
	}
	if authz.IsMentor(r, models.KindAdvisor) || authz.IsMentor(r, models.KindCritic) {
		linked, err := a.Links.Connected(ctx, doc.OwnerID, uid)
		if err != nil {
			return nil, 0, err
		}
		if linked {
			return doc, ReaderMentor, nil
		}
	}
	return nil, 0, ErrForbidden
}
