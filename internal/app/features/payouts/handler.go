// internal/app/features/payouts/handler.go
package payouts

import (
	"context"
	"strconv"

	uierrors "github.com/zerlake/thesisai/internal/app/features/errors"
	ledgerstore "github.com/zerlake/thesisai/internal/app/store/ledger"
	notificationstore "github.com/zerlake/thesisai/internal/app/store/notifications"
	payoutstore "github.com/zerlake/thesisai/internal/app/store/payouts"
	"github.com/zerlake/thesisai/internal/app/system/auditlog"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultMinimum is the smallest payout, in centavos (PHP 500).
const DefaultMinimum int64 = 50000

// Handler serves payout requests, their admin review, and the ledger.
type Handler struct {
	Payouts       *payoutstore.Store
	Ledger        *ledgerstore.Store
	Notifications *notificationstore.Store
	Minimum       int64
	AuditLog      *auditlog.Logger
	ErrLog        *uierrors.ErrorLogger
	Log           *zap.Logger
}

// NewHandler constructs a Handler. A minimum <= 0 uses DefaultMinimum.
func NewHandler(db *mongo.Database, notifications *notificationstore.Store, minimum int64, auditLog *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	if minimum <= 0 {
		minimum = DefaultMinimum
	}
	ledger := ledgerstore.New(db)
	return &Handler{
		Payouts:       payoutstore.New(db, ledger, logger),
		Ledger:        ledger,
		Notifications: notifications,
		Minimum:       minimum,
		AuditLog:      auditLog,
		ErrLog:        errLog,
		Log:           logger,
	}
}

func (h *Handler) notify(ctx context.Context, p *models.PayoutRequest, title string) {
	if h.Notifications == nil {
		return
	}
	body := "Payout of " + formatPHP(p.Amount) + " via " + p.Method + " is now " + p.Status + "."
	if _, err := h.Notifications.Notify(ctx, p.UserID, models.NotifyPayout, title, body, "/payouts"); err != nil {
		h.Log.Warn("payout notification failed", zap.String("payout_id", p.ID.Hex()), zap.Error(err))
	}
}

// formatPHP renders centavos as "PHP 1234.50".
func formatPHP(centavos int64) string {
	sign := ""
	if centavos < 0 {
		sign = "-"
		centavos = -centavos
	}
	frac := strconv.FormatInt(centavos%100, 10)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	return "PHP " + sign + strconv.FormatInt(centavos/100, 10) + "." + frac
}

func auditDetails(p *models.PayoutRequest) map[string]string {
	d := map[string]string{
		"amount": strconv.FormatInt(p.Amount, 10),
		"method": p.Method,
		"status": p.Status,
	}
	if p.Reason != "" {
		d["reason"] = p.Reason
	}
	return d
}
