// Package owned holds the CRUD shared by collections whose rows belong to a
// single profile through an owner_id field.
package owned

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when the row does not exist or belongs to someone
// else. The two cases are not told apart.
var ErrNotFound = errors.New("not found")

// Collection stores rows of T keyed by _id and owner_id.
type Collection[T any] struct {
	c *mongo.Collection
}

// New wraps the named collection.
func New[T any](db *mongo.Database, name string) *Collection[T] {
	return &Collection[T]{c: db.Collection(name)}
}

// EnsureIndexes creates the owner listing index.
func (o *Collection[T]) EnsureIndexes(ctx context.Context) error {
	_, err := o.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return err
}

// Insert stores row.
func (o *Collection[T]) Insert(ctx context.Context, row T) error {
	_, err := o.c.InsertOne(ctx, row)
	return err
}

// Get loads the owner's row.
func (o *Collection[T]) Get(ctx context.Context, ownerID, id primitive.ObjectID) (*T, error) {
	var row T
	err := o.c.FindOne(ctx, bson.M{"_id": id, "owner_id": ownerID}).Decode(&row)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns the owner's rows, newest first. projection may be nil.
func (o *Collection[T]) List(ctx context.Context, ownerID primitive.ObjectID, limit int64, projection bson.M) ([]T, error) {
	return o.ListWhere(ctx, ownerID, nil, limit, projection)
}

// ListWhere is List narrowed by the extra field conditions in where.
func (o *Collection[T]) ListWhere(ctx context.Context, ownerID primitive.ObjectID, where bson.M, limit int64, projection bson.M) ([]T, error) {
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).SetLimit(limit)
	if projection != nil {
		opts.SetProjection(projection)
	}
	filter := bson.M{}
	for k, v := range where {
		filter[k] = v
	}
	filter["owner_id"] = ownerID
	cur, err := o.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Set updates fields of the owner's row.
func (o *Collection[T]) Set(ctx context.Context, ownerID, id primitive.ObjectID, fields bson.M) (*T, error) {
	var row T
	err := o.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "owner_id": ownerID},
		bson.M{"$set": fields},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&row)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Delete removes the owner's row.
func (o *Collection[T]) Delete(ctx context.Context, ownerID, id primitive.ObjectID) error {
	res, err := o.c.DeleteOne(ctx, bson.M{"_id": id, "owner_id": ownerID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Count counts the owner's rows.
func (o *Collection[T]) Count(ctx context.Context, ownerID primitive.ObjectID) (int64, error) {
	return o.c.CountDocuments(ctx, bson.M{"owner_id": ownerID})
}
