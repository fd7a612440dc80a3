// Package mongo is the store backend for MongoDB deployments. The counter
// uses a findAndModify with $inc and upsert, which the server executes
// atomically per document, so the returned value always belongs to this
// exact call.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SeshatHQ/seshat/lib/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	client   *mongo.Client
	kv       *mongo.Collection
	counters *mongo.Collection
}

var _ store.Interface = (*Store)(nil)

type kvDoc struct {
	Value     []byte `bson:"value"`
	ExpiresAt int64  `bson:"expiresAt,omitempty"` // unix milliseconds, 0 = never
}

type counterDoc struct {
	Count int64 `bson:"count"`
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var doc kvDoc

	err := s.kv.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %q", store.ErrNotFound, key)
		}
		return nil, fmt.Errorf("mongo: can't read key %q: %w", key, err)
	}

	if doc.ExpiresAt != 0 && time.Now().UnixMilli() >= doc.ExpiresAt {
		_, _ = s.kv.DeleteOne(ctx, bson.M{"_id": key})
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}

	return doc.Value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, expiry time.Duration) error {
	doc := kvDoc{Value: value}
	if expiry > 0 {
		doc.ExpiresAt = time.Now().Add(expiry).UnixMilli()
	}

	_, err := s.kv.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": doc.Value, "expiresAt": doc.ExpiresAt}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo: can't write key %q: %w", key, err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	res, err := s.kv.DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return fmt.Errorf("mongo: can't delete key %q: %w", key, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}

	return nil
}

func (s *Store) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	var doc counterDoc

	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": key},
		bson.M{"$inc": bson.M{"count": delta}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("mongo: can't increment counter %q: %w", key, err)
	}

	return doc.Count, nil
}

func (s *Store) GetInt(ctx context.Context, key string) (int64, error) {
	var doc counterDoc

	err := s.counters.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, fmt.Errorf("mongo: can't read counter %q: %w", key, err)
	}

	return doc.Count, nil
}

func (s *Store) IsPersistent() bool { return true }

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.client.Disconnect(ctx)
}
