// Package valkey is the store backend for Redis-protocol servers (Valkey,
// Redis, KeyDB). This is the backend production deployments run: the counter
// rides on the server's native INCRBY, which is atomic on the server side and
// treats a missing key as zero.
package valkey

import (
	"context"
	"strconv"
	"time"

	"github.com/SeshatHQ/seshat/lib/store"
	valkey "github.com/redis/go-redis/v9"
)

// Store implements store.Interface on top of Redis/Valkey.
type Store struct {
	client redisClient
}

var _ store.Interface = (*Store)(nil)

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := s.client.Get(ctx, key)
	if err := cmd.Err(); err != nil {
		if err == valkey.Nil {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	return cmd.Bytes()
}

func (s *Store) Set(ctx context.Context, key string, value []byte, expiry time.Duration) error {
	return s.client.Set(ctx, key, value, expiry).Err()
}

func (s *Store) Delete(ctx context.Context, key string) error {
	res := s.client.Del(ctx, key)
	if err := res.Err(); err != nil {
		return err
	}
	if n, _ := res.Result(); n == 0 {
		return store.ErrNotFound
	}

	return nil
}

func (s *Store) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	return s.client.IncrBy(ctx, key, delta).Result()
}

func (s *Store) GetInt(ctx context.Context, key string) (int64, error) {
	raw, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == valkey.Nil {
			return 0, nil
		}
		return 0, err
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}

	return n, nil
}

// IsPersistent is true from the service's point of view: the data lives in a
// different process and survives our restarts.
func (s *Store) IsPersistent() bool {
	return true
}
