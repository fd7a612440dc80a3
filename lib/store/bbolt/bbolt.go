// Package bbolt is the single-file store backend. It suits one-instance
// deployments that want the counter to survive restarts without running a
// separate store server.
package bbolt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/SeshatHQ/seshat/lib/store"
	bolt "go.etcd.io/bbolt"
)

// envelope wraps stored values so expiry travels with them. Counters skip the
// envelope: they are bare decimal strings in their own bucket and never
// expire.
type envelope struct {
	Value     []byte `json:"value"`
	ExpiresAt int64  `json:"expiresAt,omitempty"` // unix milliseconds, 0 = never
}

type Store struct {
	db       *bolt.DB
	kv       []byte
	counters []byte
}

var _ store.Interface = (*Store)(nil)

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var env envelope
	var found bool

	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(s.kv).Get([]byte(key))
		if raw == nil {
			return nil
		}

		found = true
		return json.Unmarshal(raw, &env)
	})
	if err != nil {
		return nil, fmt.Errorf("bbolt: can't read key %q: %w", key, err)
	}

	if !found {
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}

	if env.ExpiresAt != 0 && time.Now().UnixMilli() >= env.ExpiresAt {
		// Prune lazily; a failure here only delays the next prune.
		_ = s.Delete(ctx, key)
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}

	return env.Value, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, expiry time.Duration) error {
	env := envelope{Value: value}
	if expiry > 0 {
		env.ExpiresAt = time.Now().Add(expiry).UnixMilli()
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("bbolt: can't marshal key %q: %w", key, err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.kv).Put([]byte(key), raw)
	})
}

func (s *Store) Delete(_ context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(s.kv)
		if bkt.Get([]byte(key)) == nil {
			return fmt.Errorf("%w: %q", store.ErrNotFound, key)
		}

		return bkt.Delete([]byte(key))
	})
}

func (s *Store) Increment(_ context.Context, key string, delta int64) (int64, error) {
	var result int64

	// The whole read-add-write happens inside one write transaction, which
	// bbolt serializes; two concurrent calls can never read the same value.
	err := s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(s.counters)

		current, err := parseCounter(bkt.Get([]byte(key)))
		if err != nil {
			return fmt.Errorf("bbolt: counter %q is corrupt: %w", key, err)
		}

		result = current + delta
		return bkt.Put([]byte(key), strconv.AppendInt(nil, result, 10))
	})
	if err != nil {
		return 0, err
	}

	return result, nil
}

func (s *Store) GetInt(_ context.Context, key string) (int64, error) {
	var result int64

	err := s.db.View(func(tx *bolt.Tx) error {
		current, err := parseCounter(tx.Bucket(s.counters).Get([]byte(key)))
		if err != nil {
			return fmt.Errorf("bbolt: counter %q is corrupt: %w", key, err)
		}

		result = current
		return nil
	})
	if err != nil {
		return 0, err
	}

	return result, nil
}

func (s *Store) IsPersistent() bool { return true }

func (s *Store) Close() error { return s.db.Close() }

func parseCounter(raw []byte) (int64, error) {
	if raw == nil {
		return 0, nil
	}

	return strconv.ParseInt(string(raw), 10, 64)
}
