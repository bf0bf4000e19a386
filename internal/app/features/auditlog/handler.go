// internal/app/features/auditlog/handler.go
package auditlog

import (
	uierrors "github.com/zerlake/thesisai/internal/app/features/errors"
	"github.com/zerlake/thesisai/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the admin views of both audit trails.
type Handler struct {
	Events *audit.Store
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

// NewHandler constructs an audit log handler bound to db.
func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Events: audit.New(db),
		Log:    logger,
		ErrLog: errLog,
	}
}
