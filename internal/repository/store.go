package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

// Store is the CRUD surface shared by every collection.
type Store[T any] interface {
	Insert(ctx context.Context, doc *T) error
	InsertMany(ctx context.Context, docs []*T) (int, error)
	FindByID(ctx context.Context, id string) (*T, error)
	FindOne(ctx context.Context, q Query) (*T, error)
	Find(ctx context.Context, q Query) ([]T, error)
	Count(ctx context.Context, q Query) (int64, error)
	// Update applies $set with fields and returns the updated document.
	Update(ctx context.Context, id string, fields bson.M) (*T, error)
	// UpdateOne applies $set to the first document matching q and returns it, or
	// ErrNotFound when nothing matches. Match and write happen atomically.
	UpdateOne(ctx context.Context, q Query, fields bson.M) (*T, error)
	UpdateMany(ctx context.Context, q Query, fields bson.M) (int64, error)
	Increment(ctx context.Context, id string, deltas map[string]int) (*T, error)
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, q Query) (int64, error)
}
