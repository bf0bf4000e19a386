// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"strings"
	"time"

	auditstore "github.com/zerlake/thesisai/internal/app/store/audit"
	layoutstore "github.com/zerlake/thesisai/internal/app/store/dashboards"
	defensestore "github.com/zerlake/thesisai/internal/app/store/defense"
	documentstore "github.com/zerlake/thesisai/internal/app/store/documents"
	flashcardstore "github.com/zerlake/thesisai/internal/app/store/flashcards"
	ledgerstore "github.com/zerlake/thesisai/internal/app/store/ledger"
	messagestore "github.com/zerlake/thesisai/internal/app/store/messages"
	notificationstore "github.com/zerlake/thesisai/internal/app/store/notifications"
	payoutstore "github.com/zerlake/thesisai/internal/app/store/payouts"
	profilestore "github.com/zerlake/thesisai/internal/app/store/profiles"
	ratelimitstore "github.com/zerlake/thesisai/internal/app/store/ratelimit"
	referralstore "github.com/zerlake/thesisai/internal/app/store/referrals"
	relationshipstore "github.com/zerlake/thesisai/internal/app/store/relationships"
	studyguidestore "github.com/zerlake/thesisai/internal/app/store/studyguides"
	syncstore "github.com/zerlake/thesisai/internal/app/store/syncchanges"
	widgetstore "github.com/zerlake/thesisai/internal/app/store/widgetcache"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Ensurer is implemented by every store that owns indexes.
type Ensurer interface {
	EnsureIndexes(ctx context.Context) error
}

// Target names one index owner.
type Target struct {
	Name string
	Ensurer
}

// Targets lists every collection group the server reads and writes.
func Targets(db *mongo.Database, logger *zap.Logger) []Target {
	ledger := ledgerstore.New(db)
	return []Target{
		{"profiles", profilestore.New(db)},
		{"relationships", relationshipstore.New(db, logger)},
		{"documents", documentstore.New(db, logger)},
		{"flashcard_decks", flashcardstore.New(db)},
		{"defense_question_sets", defensestore.New(db)},
		{"study_guides", studyguidestore.New(db)},
		{"financial_ledger", ledger},
		{"payout_requests", payoutstore.New(db, ledger, logger)},
		{"referral_events", referralstore.New(db)},
		{"messages", messagestore.New(db)},
		{"notifications", notificationstore.New(db, notificationstore.DefaultTTL)},
		{"sync_changes", syncstore.New(db)},
		{"dashboard_layouts", layoutstore.New(db)},
		{"widget_data_cache", widgetstore.New(db)},
		{"audit", auditstore.New(db)},
		{"rate_limiting", ratelimitstore.New(db)},
	}
}

/*
EnsureAll is called at startup and by the ops CLI. Every EnsureIndexes is
idempotent. Errors are aggregated so one bad collection does not hide another.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Ensure(ctx, logger, Targets(db, logger)...)
}

// Ensure runs each target in order and joins the failures.
func Ensure(ctx context.Context, logger *zap.Logger, targets ...Target) error {
	var problems []string
	for _, t := range targets {
		start := time.Now()
		if err := t.EnsureIndexes(ctx); err != nil {
			logger.Warn("index ensure failed", zap.String("target", t.Name), zap.Error(err))
			problems = append(problems, t.Name+": "+err.Error())
			continue
		}
		logger.Debug("indexes ensured", zap.String("target", t.Name), zap.Duration("took", time.Since(start)))
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
