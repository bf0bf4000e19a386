package jsonapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ObjectIDParam parses the chi URL parameter name as an ObjectID. On failure it
// writes a 400 and returns false.
func ObjectIDParam(w http.ResponseWriter, r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		BadRequest(w, "invalid "+name)
		return primitive.NilObjectID, false
	}
	return id, true
}

// IntQuery parses an integer query value, falling back to def when the value
// is absent and clamping into [min, max].
func IntQuery(r *http.Request, key string, def, min, max int) int {
	s := strings.TrimSpace(r.URL.Query().Get(key))
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

// BoolQuery reports whether key is set to a truthy value.
func BoolQuery(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}
