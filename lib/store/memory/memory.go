// Package memory is the in-process store backend. It exists for development
// and tests; nothing here survives a restart, and it cannot be shared between
// instances.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SeshatHQ/seshat/lib/store"
)

type entry struct {
	value  []byte
	expiry time.Time // zero means no expiry
}

// Store keeps plain values and counters in two maps behind one mutex.
// Expired values are pruned on read and swept periodically.
type Store struct {
	lock     sync.RWMutex
	data     map[string]entry
	counters map[string]int64
}

var _ store.Interface = (*Store)(nil)

// New creates the store and starts its sweep goroutine, which runs until ctx
// is canceled.
func New(ctx context.Context) *Store {
	result := &Store{
		data:     make(map[string]entry),
		counters: make(map[string]int64),
	}

	go result.sweep(ctx)

	return result
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.lock.RLock()
	e, ok := s.data[key]
	s.lock.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}

	if !e.expiry.IsZero() && time.Now().After(e.expiry) {
		s.lock.Lock()
		// Re-check under the write lock; a Set may have raced us.
		if cur, ok := s.data[key]; ok && cur.expiry.Equal(e.expiry) {
			delete(s.data, key)
		}
		s.lock.Unlock()

		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}

	return e.value, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, expiry time.Duration) error {
	e := entry{value: value}
	if expiry > 0 {
		e.expiry = time.Now().Add(expiry)
	}

	s.lock.Lock()
	s.data[key] = e
	s.lock.Unlock()

	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.data[key]; !ok {
		return fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}

	delete(s.data, key)
	return nil
}

func (s *Store) Increment(_ context.Context, key string, delta int64) (int64, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.counters[key] += delta
	return s.counters[key], nil
}

func (s *Store) GetInt(_ context.Context, key string) (int64, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.counters[key], nil
}

// Cleanup removes every value past its expiry. Counters never expire.
func (s *Store) Cleanup() {
	now := time.Now()

	s.lock.Lock()
	defer s.lock.Unlock()

	for key, e := range s.data {
		if !e.expiry.IsZero() && now.After(e.expiry) {
			delete(s.data, key)
		}
	}
}

func (s *Store) sweep(ctx context.Context) {
	t := time.NewTicker(5 * time.Minute)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Cleanup()
		}
	}
}
