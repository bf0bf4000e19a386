// internal/app/features/notifications/handler.go
package notifications

import (
	uierrors "github.com/zerlake/thesisai/internal/app/features/errors"
	notificationstore "github.com/zerlake/thesisai/internal/app/store/notifications"
	"go.uber.org/zap"
)

// Handler serves the caller's in-app notifications.
type Handler struct {
	Notifications *notificationstore.Store
	ErrLog        *uierrors.ErrorLogger
	Log           *zap.Logger
}

func NewHandler(notifications *notificationstore.Store, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Notifications: notifications, ErrLog: errLog, Log: logger}
}
