// Package txn runs multi-step writes inside a MongoDB transaction.
//
// Transactions need a replica set or sharded cluster. On a standalone server
// (common in development) Run executes the steps once without a transaction and
// marks the context so callers know to compensate failed later steps themselves.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type ctxKey struct{}

// Compensating reports whether ctx belongs to a Run that fell back to
// non-transactional execution. Steps that leave partial state behind on a
// later failure must undo it when this is true.
func Compensating(ctx context.Context) bool {
	v, _ := ctx.Value(ctxKey{}).(bool)
	return v
}

// Run executes fn in a transaction on client. The context passed to fn must be
// used for every operation that should be part of the transaction.
//
// If the server rejects transactions, fn is executed again outside of one with
// a context for which Compensating returns true. Writes from the aborted
// attempt were rolled back, so the second run starts clean.
func Run(ctx context.Context, client *mongo.Client, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return runWithoutTxn(ctx, log, fn, err)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		return runWithoutTxn(ctx, log, fn, err)
	}
	return err
}

func runWithoutTxn(ctx context.Context, log *zap.Logger, fn func(context.Context) error, cause error) error {
	if log != nil {
		log.Debug("transactions unavailable; running with compensation", zap.Error(cause))
	}
	return fn(context.WithValue(ctx, ctxKey{}, true))
}

// illegalOperation is the server code a standalone mongod answers with when
// it is handed a transaction number.
const illegalOperation = 20

// Messages that only appear when the deployment itself cannot run
// transactions. A failure inside a transaction never matches them.
var notSupportedMessages = []string{
	"transaction numbers are only allowed on",    // standalone mongod
	"current topology does not support sessions", // driver, before any command
}

// IsNotSupported reports whether err says the server cannot run transactions.
// Other transaction failures, including IllegalOperation for any other
// reason, are not matched and must surface to the caller.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code != illegalOperation && cmdErr.Code != 0 {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range notSupportedMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
