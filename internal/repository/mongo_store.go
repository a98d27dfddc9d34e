package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type MongoStore[T any] struct {
	collection *mongo.Collection
}

func NewMongoStore[T any](database *mongo.Database, collection string) *MongoStore[T] {
	return &MongoStore[T]{
		collection: database.Collection(collection),
	}
}

func (s *MongoStore[T]) Collection() *mongo.Collection {
	return s.collection
}

func (s *MongoStore[T]) Insert(ctx context.Context, doc *T) error {
	_, err := s.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to insert into %s: %w", s.collection.Name(), ErrDuplicateKey)
		}
		return fmt.Errorf("failed to insert into %s: %w", s.collection.Name(), err)
	}
	return nil
}

// InsertMany is unordered; on a partial failure it reports how many documents made it.
func (s *MongoStore[T]) InsertMany(ctx context.Context, docs []*T) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	result, err := s.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	inserted := 0
	if result != nil {
		inserted = len(result.InsertedIDs)
	}
	if err != nil {
		return inserted, fmt.Errorf("failed to insert many into %s: %w", s.collection.Name(), err)
	}
	return inserted, nil
}

func (s *MongoStore[T]) FindByID(ctx context.Context, id string) (*T, error) {
	var doc T
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find %s by ID: %w", s.collection.Name(), err)
	}
	return &doc, nil
}

func (s *MongoStore[T]) FindOne(ctx context.Context, q Query) (*T, error) {
	opts := options.FindOne()
	if sort := q.SortDoc(); sort != nil {
		opts.SetSort(sort)
	}
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}

	var doc T
	err := s.collection.FindOne(ctx, q.Filter(), opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find one in %s: %w", s.collection.Name(), err)
	}
	return &doc, nil
}

func (s *MongoStore[T]) Find(ctx context.Context, q Query) ([]T, error) {
	opts := options.Find()
	if sort := q.SortDoc(); sort != nil {
		opts.SetSort(sort)
	}
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cursor, err := s.collection.Find(ctx, q.Filter(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find in %s: %w", s.collection.Name(), err)
	}
	defer cursor.Close(ctx)

	docs := []T{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.collection.Name(), err)
	}
	return docs, nil
}

func (s *MongoStore[T]) Count(ctx context.Context, q Query) (int64, error) {
	count, err := s.collection.CountDocuments(ctx, q.Filter())
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", s.collection.Name(), err)
	}
	return count, nil
}

func (s *MongoStore[T]) Update(ctx context.Context, id string, fields bson.M) (*T, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc T
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("failed to update %s: %w", s.collection.Name(), ErrDuplicateKey)
		}
		return nil, fmt.Errorf("failed to update %s: %w", s.collection.Name(), err)
	}
	return &doc, nil
}

func (s *MongoStore[T]) UpdateOne(ctx context.Context, q Query, fields bson.M) (*T, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if sort := q.SortDoc(); sort != nil {
		opts.SetSort(sort)
	}

	var doc T
	err := s.collection.FindOneAndUpdate(ctx, q.Filter(), bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("failed to update %s: %w", s.collection.Name(), ErrDuplicateKey)
		}
		return nil, fmt.Errorf("failed to update %s: %w", s.collection.Name(), err)
	}
	return &doc, nil
}

func (s *MongoStore[T]) UpdateMany(ctx context.Context, q Query, fields bson.M) (int64, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}

	result, err := s.collection.UpdateMany(ctx, q.Filter(), bson.M{"$set": set})
	if err != nil {
		return 0, fmt.Errorf("failed to update many in %s: %w", s.collection.Name(), err)
	}
	return result.ModifiedCount, nil
}

func (s *MongoStore[T]) Increment(ctx context.Context, id string, deltas map[string]int) (*T, error) {
	inc := bson.M{}
	for k, v := range deltas {
		inc[k] = v
	}
	update := bson.M{
		"$inc": inc,
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc T
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to increment %s: %w", s.collection.Name(), err)
	}
	return &doc, nil
}

func (s *MongoStore[T]) Delete(ctx context.Context, id string) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", s.collection.Name(), err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore[T]) DeleteMany(ctx context.Context, q Query) (int64, error) {
	result, err := s.collection.DeleteMany(ctx, q.Filter())
	if err != nil {
		return 0, fmt.Errorf("failed to delete many from %s: %w", s.collection.Name(), err)
	}
	return result.DeletedCount, nil
}
