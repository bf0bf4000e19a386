// internal/domain/models/sync.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Sync operations.
const (
	SyncUpsert = "upsert"
	SyncDelete = "delete"
)

// SyncChange is one change an offline client pushed. (UserID, ClientID) is unique,
// which makes pushes idempotent.
type SyncChange struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	ClientID  string             `bson:"client_id" json:"client_id"`
	Entity    string             `bson:"entity" json:"entity"`
	EntityID  string             `bson:"entity_id" json:"entity_id"`
	Op        string             `bson:"op" json:"op"`
	Payload   bson.M             `bson:"payload,omitempty" json:"payload,omitempty"`
	ClientTS  time.Time          `bson:"client_ts" json:"client_ts"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// DashboardWidget places a widget on the dashboard grid.
type DashboardWidget struct {
	ID   string `bson:"id" json:"id"`
	Type string `bson:"type" json:"type"`
	X    int    `bson:"x" json:"x"`
	Y    int    `bson:"y" json:"y"`
	W    int    `bson:"w" json:"w"`
	H    int    `bson:"h" json:"h"`
}

// DashboardLayout is a saved dashboard arrangement. At most one layout per user
// is the default.
type DashboardLayout struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Name      string             `bson:"name" json:"name"`
	Widgets   []DashboardWidget  `bson:"widgets" json:"widgets"`
	IsDefault bool               `bson:"is_default" json:"is_default"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
