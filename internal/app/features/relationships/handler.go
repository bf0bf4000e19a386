// internal/app/features/relationships/handler.go
package relationships

import (
	"context"

	uierrors "github.com/zerlake/thesisai/internal/app/features/errors"
	notificationstore "github.com/zerlake/thesisai/internal/app/store/notifications"
	profilestore "github.com/zerlake/thesisai/internal/app/store/profiles"
	relationshipstore "github.com/zerlake/thesisai/internal/app/store/relationships"
	"github.com/zerlake/thesisai/internal/app/system/auditlog"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves advisor and critic linking.
type Handler struct {
	Relationships *relationshipstore.Store
	Profiles      *profilestore.Store
	Notifications *notificationstore.Store
	AuditLog      *auditlog.Logger
	ErrLog        *uierrors.ErrorLogger
	Log           *zap.Logger
}

func NewHandler(db *mongo.Database, notifications *notificationstore.Store, auditLog *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Relationships: relationshipstore.New(db, logger),
		Profiles:      profilestore.New(db),
		Notifications: notifications,
		AuditLog:      auditLog,
		ErrLog:        errLog,
		Log:           logger,
	}
}

// notify is best effort: the relationship change has already happened.
func (h *Handler) notify(ctx context.Context, userID primitive.ObjectID, title, body string) {
	if h.Notifications == nil {
		return
	}
	if _, err := h.Notifications.Notify(ctx, userID, models.NotifyRelationship, title, body, "/relationships"); err != nil {
		h.Log.Warn("relationship notification failed", zap.String("user_id", userID.Hex()), zap.Error(err))
	}
}
