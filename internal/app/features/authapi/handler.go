// internal/app/features/authapi/handler.go
package authapi

import (
	uierrors "github.com/zerlake/thesisai/internal/app/features/errors"
	profilestore "github.com/zerlake/thesisai/internal/app/store/profiles"
	referralstore "github.com/zerlake/thesisai/internal/app/store/referrals"
	"github.com/zerlake/thesisai/internal/app/system/auditlog"
	"github.com/zerlake/thesisai/internal/app/system/auth"
	"github.com/zerlake/thesisai/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves sign-up, sign-in and sign-out.
type Handler struct {
	Profiles  *profilestore.Store
	Referrals *referralstore.Store
	Sessions  *auth.SessionManager
	Login     *ratelimit.LoginLimiter
	AuditLog  *auditlog.Logger
	ErrLog    *uierrors.ErrorLogger
	Log       *zap.Logger
}

// NewHandler constructs a Handler. login may be nil to disable sign-in
// throttling.
func NewHandler(db *mongo.Database, sessions *auth.SessionManager, login *ratelimit.LoginLimiter, auditLog *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Profiles:  profilestore.New(db),
		Referrals: referralstore.New(db),
		Sessions:  sessions,
		Login:     login,
		AuditLog:  auditLog,
		ErrLog:    errLog,
		Log:       logger,
	}
}
