// internal/app/features/ratelimits/handler.go
package ratelimits

import (
	uierrors "github.com/zerlake/thesisai/internal/app/features/errors"
	profilestore "github.com/zerlake/thesisai/internal/app/store/profiles"
	ratelimitstore "github.com/zerlake/thesisai/internal/app/store/ratelimit"
	"github.com/zerlake/thesisai/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the rate-limiting admin endpoints.
type Handler struct {
	Store    *ratelimitstore.Store
	Profiles *profilestore.Store
	Service  *ratelimit.Service
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, svc *ratelimit.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Store:    ratelimitstore.New(db),
		Profiles: profilestore.New(db),
		Service:  svc,
		ErrLog:   errLog,
		Log:      logger,
	}
}
