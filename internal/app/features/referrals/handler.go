// internal/app/features/referrals/handler.go
package referrals

import (
	uierrors "github.com/zerlake/thesisai/internal/app/features/errors"
	ledgerstore "github.com/zerlake/thesisai/internal/app/store/ledger"
	notificationstore "github.com/zerlake/thesisai/internal/app/store/notifications"
	profilestore "github.com/zerlake/thesisai/internal/app/store/profiles"
	referralstore "github.com/zerlake/thesisai/internal/app/store/referrals"
	"github.com/zerlake/thesisai/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultCommission is credited per conversion, in centavos (PHP 100).
const DefaultCommission int64 = 10000

// Handler serves referral summaries and the admin fraud controls.
type Handler struct {
	Client        *mongo.Client
	Referrals     *referralstore.Store
	Profiles      *profilestore.Store
	Ledger        *ledgerstore.Store
	Notifications *notificationstore.Store
	Commission    int64
	AuditLog      *auditlog.Logger
	ErrLog        *uierrors.ErrorLogger
	Log           *zap.Logger
}

// NewHandler constructs a Handler. A commission <= 0 uses DefaultCommission.
func NewHandler(db *mongo.Database, notifications *notificationstore.Store, commission int64, auditLog *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	if commission <= 0 {
		commission = DefaultCommission
	}
	return &Handler{
		Client:        db.Client(),
		Referrals:     referralstore.New(db),
		Profiles:      profilestore.New(db),
		Ledger:        ledgerstore.New(db),
		Notifications: notifications,
		Commission:    commission,
		AuditLog:      auditLog,
		ErrLog:        errLog,
		Log:           logger,
	}
}
