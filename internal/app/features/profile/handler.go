// internal/app/features/profile/handler.go
package profile

import (
	uierrors "github.com/zerlake/thesisai/internal/app/features/errors"
	profilestore "github.com/zerlake/thesisai/internal/app/store/profiles"
	"github.com/zerlake/thesisai/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the caller's profile and the admin account controls.
type Handler struct {
	Profiles *profilestore.Store
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

// NewHandler constructs a Handler bound to the given Mongo database and logger.
func NewHandler(db *mongo.Database, auditLog *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Profiles: profilestore.New(db),
		AuditLog: auditLog,
		ErrLog:   errLog,
		Log:      logger,
	}
}
