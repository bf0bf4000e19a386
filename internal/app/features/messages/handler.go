// internal/app/features/messages/handler.go
package messages

import (
	"context"

	uierrors "github.com/zerlake/thesisai/internal/app/features/errors"
	messagestore "github.com/zerlake/thesisai/internal/app/store/messages"
	notificationstore "github.com/zerlake/thesisai/internal/app/store/notifications"
	profilestore "github.com/zerlake/thesisai/internal/app/store/profiles"
	relationshipstore "github.com/zerlake/thesisai/internal/app/store/relationships"
	"github.com/zerlake/thesisai/internal/app/system/auditlog"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves direct messages between students and their mentors.
type Handler struct {
	Messages      *messagestore.Store
	Profiles      *profilestore.Store
	Links         *relationshipstore.Store
	Notifications *notificationstore.Store
	AuditLog      *auditlog.Logger
	ErrLog        *uierrors.ErrorLogger
	Log           *zap.Logger
}

func NewHandler(db *mongo.Database, notifications *notificationstore.Store, auditLog *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Messages:      messagestore.New(db),
		Profiles:      profilestore.New(db),
		Links:         relationshipstore.New(db, logger),
		Notifications: notifications,
		AuditLog:      auditLog,
		ErrLog:        errLog,
		Log:           logger,
	}
}

// notify is best effort: the message is already stored.
func (h *Handler) notify(ctx context.Context, recipient primitive.ObjectID, senderName string) {
	if h.Notifications == nil {
		return
	}
	if _, err := h.Notifications.Notify(ctx, recipient, models.NotifyMessage, "New message", "New message from "+senderName, "/messages"); err != nil {
		h.Log.Warn("message notification failed", zap.String("user_id", recipient.Hex()), zap.Error(err))
	}
}
