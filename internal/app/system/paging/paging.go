// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Page sizes for JSON list endpoints.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ParseLimit reads ?limit=, clamped to [1, MaxLimit]. Missing or invalid
// values give DefaultLimit.
func ParseLimit(r *http.Request) int {
	n, err := strconv.Atoi(query.Get(r, "limit"))
	if err != nil || n < 1 {
		return DefaultLimit
	}
	return min(n, MaxLimit)
}

// EncodeTimeCursor makes an opaque cursor from a timestamp sort key and the
// row id that breaks ties.
func EncodeTimeCursor(t time.Time, id primitive.ObjectID) string {
	return wafflemongo.EncodeCursor(t.UTC().Format(time.RFC3339Nano), id)
}

// TimeCursor is a decoded EncodeTimeCursor value.
type TimeCursor struct {
	At time.Time
	ID primitive.ObjectID
}

// DecodeTimeCursor parses s. ok is false for empty or malformed cursors.
func DecodeTimeCursor(s string) (TimeCursor, bool) {
	if s == "" {
		return TimeCursor{}, false
	}
	c, ok := wafflemongo.DecodeCursor(s)
	if !ok {
		return TimeCursor{}, false
	}
	at, err := time.Parse(time.RFC3339Nano, c.CI)
	if err != nil {
		return TimeCursor{}, false
	}
	return TimeCursor{At: at, ID: c.ID}, true
}

// OlderThan is the filter for rows after c in newest-first order on field.
func (c TimeCursor) OlderThan(field string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{field: bson.M{"$lt": c.At}},
		bson.M{field: c.At, "_id": bson.M{"$lt": c.ID}},
	}}
}

// NewestFirst sorts on field then _id, both descending.
func NewestFirst(field string) bson.D {
	return bson.D{{Key: field, Value: -1}, {Key: "_id", Value: -1}}
}

// TrimPage cuts rows fetched with limit+1 down to limit and reports whether
// another page exists.
func TrimPage[T any](rows *[]T, limit int) bool {
	if len(*rows) > limit {
		*rows = (*rows)[:limit]
		return true
	}
	return false
}
