package indexes_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zerlake/thesisai/internal/app/system/indexes"
	"github.com/zerlake/thesisai/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap/zaptest"
)

type ensurerFunc func(ctx context.Context) error

func (f ensurerFunc) EnsureIndexes(ctx context.Context) error { return f(ctx) }

func TestEnsureAggregatesErrors(t *testing.T) {
	var ran []string
	ok := func(name string) indexes.Target {
		return indexes.Target{Name: name, Ensurer: ensurerFunc(func(context.Context) error {
			ran = append(ran, name)
			return nil
		})}
	}
	bad := func(name string) indexes.Target {
		return indexes.Target{Name: name, Ensurer: ensurerFunc(func(context.Context) error {
			ran = append(ran, name)
			return errors.New("duplicates present")
		})}
	}

	err := indexes.Ensure(context.Background(), zaptest.NewLogger(t), ok("a"), bad("b"), ok("c"), bad("d"))
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := strings.Join(ran, ","); got != "a,b,c,d" {
		t.Fatalf("every target should run, ran %s", got)
	}
	if msg := err.Error(); !strings.Contains(msg, "b: duplicates present") || !strings.Contains(msg, "d: duplicates present") {
		t.Fatalf("error should name both failures: %q", msg)
	}
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := zaptest.NewLogger(t)
	if err := indexes.EnsureAll(ctx, db, logger); err != nil {
		t.Fatalf("first EnsureAll: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db, logger); err != nil {
		t.Fatalf("second EnsureAll: %v", err)
	}
}

func TestEnsureAll_UniqueProfileEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db, nil); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	cur, err := db.Collection("profiles").Indexes().List(ctx)
	if err != nil {
		t.Fatalf("list indexes: %v", err)
	}
	defer cur.Close(ctx)

	var uniqueEmail bool
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			t.Fatalf("decode: %v", err)
		}
		keys, _ := idx["key"].(bson.M)
		if _, ok := keys["email_ci"]; ok && idx["unique"] == true {
			uniqueEmail = true
		}
	}
	if !uniqueEmail {
		t.Error("profiles should have a unique email_ci index")
	}
}
