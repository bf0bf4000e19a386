// internal/app/features/documents/handler.go
package documents

import (
	uierrors "github.com/zerlake/thesisai/internal/app/features/errors"
	documentstore "github.com/zerlake/thesisai/internal/app/store/documents"
	relationshipstore "github.com/zerlake/thesisai/internal/app/store/relationships"
	"github.com/zerlake/thesisai/internal/app/system/auditlog"
	"github.com/zerlake/thesisai/internal/app/system/storage"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves thesis documents, their versions and attachments.
type Handler struct {
	Docs     *documentstore.Store
	Access   *Access
	Storage  *storage.Presigner // nil when uploads are not configured
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, presigner *storage.Presigner, auditLog *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	docs := documentstore.New(db, logger)
	return &Handler{
		Docs:     docs,
		Access:   &Access{Docs: docs, Links: relationshipstore.New(db, logger)},
		Storage:  presigner,
		AuditLog: auditLog,
		ErrLog:   errLog,
		Log:      logger,
	}
}
