// Package storetest contains the conformance suite that every store
// backend has to pass. Backend packages call Common from their own tests
// with whatever fixture they need (a temp dir, a container) already set up.
package storetest

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SeshatHQ/seshat/lib/store"
	"github.com/google/uuid"
)

// Common validates the config, builds a store from the factory, and runs
// the full suite against it.
func Common(t *testing.T, factory store.Factory, config json.RawMessage) {
	t.Helper()

	if err := factory.Valid(config); err != nil {
		t.Fatalf("config does not validate: %v", err)
	}

	st, err := factory.Build(t.Context(), config)
	if err != nil {
		t.Fatalf("can't build store: %v", err)
	}

	Impl(t, st)
}

// Impl runs the suite against an already constructed store. Use this for
// wrappers that decorate another backend instead of being built from a
// factory.
func Impl(t *testing.T, st store.Interface) {
	t.Helper()

	t.Run("kv", func(t *testing.T) { testKV(t, st) })
	t.Run("counter", func(t *testing.T) { testCounter(t, st) })
}

// Keys are random so the suite can run repeatedly against a shared server
// without one run tripping over leftovers from the last.
func testKV(t *testing.T, s store.Interface) {
	ctx := t.Context()

	t.Run("missing key", func(t *testing.T) {
		if _, err := s.Get(ctx, uuid.NewString()); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("wanted store.ErrNotFound, got: %v", err)
		}
	})

	t.Run("roundtrip", func(t *testing.T) {
		key := uuid.NewString()
		want := []byte("hello there")

		if err := s.Set(ctx, key, want, time.Minute); err != nil {
			t.Fatalf("can't set %q: %v", key, err)
		}

		got, err := s.Get(ctx, key)
		if err != nil {
			t.Fatalf("can't get %q: %v", key, err)
		}

		if !bytes.Equal(got, want) {
			t.Errorf("wanted %q, got: %q", want, got)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		key := uuid.NewString()

		if err := s.Set(ctx, key, []byte("first"), time.Minute); err != nil {
			t.Fatal(err)
		}
		if err := s.Set(ctx, key, []byte("second"), time.Minute); err != nil {
			t.Fatal(err)
		}

		got, err := s.Get(ctx, key)
		if err != nil {
			t.Fatal(err)
		}

		if want := []byte("second"); !bytes.Equal(got, want) {
			t.Errorf("wanted %q, got: %q", want, got)
		}
	})

	t.Run("delete", func(t *testing.T) {
		key := uuid.NewString()

		if err := s.Set(ctx, key, []byte("ephemeral"), time.Minute); err != nil {
			t.Fatal(err)
		}
		if err := s.Delete(ctx, key); err != nil {
			t.Fatalf("can't delete %q: %v", key, err)
		}

		if _, err := s.Get(ctx, key); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("wanted store.ErrNotFound after delete, got: %v", err)
		}
	})

	t.Run("delete missing", func(t *testing.T) {
		if err := s.Delete(ctx, uuid.NewString()); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("wanted store.ErrNotFound, got: %v", err)
		}
	})

	t.Run("expiry", func(t *testing.T) {
		key := uuid.NewString()

		if err := s.Set(ctx, key, []byte("soon gone"), 100*time.Millisecond); err != nil {
			t.Fatal(err)
		}

		time.Sleep(300 * time.Millisecond)

		if _, err := s.Get(ctx, key); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("wanted store.ErrNotFound after expiry, got: %v", err)
		}
	})
}

func testCounter(t *testing.T, s store.Interface) {
	ctx := t.Context()

	t.Run("fresh counter reads zero", func(t *testing.T) {
		n, err := s.GetInt(ctx, uuid.NewString())
		if err != nil {
			t.Fatalf("can't read counter: %v", err)
		}

		if n != 0 {
			t.Errorf("wanted 0, got: %d", n)
		}
	})

	t.Run("first hit is one", func(t *testing.T) {
		n, err := s.Increment(ctx, uuid.NewString(), 1)
		if err != nil {
			t.Fatalf("can't increment: %v", err)
		}

		if n != 1 {
			t.Errorf("wanted 1, got: %d", n)
		}
	})

	t.Run("sequential", func(t *testing.T) {
		key := uuid.NewString()

		for want := int64(1); want <= 25; want++ {
			got, err := s.Increment(ctx, key, 1)
			if err != nil {
				t.Fatalf("increment %d: %v", want, err)
			}

			if got != want {
				t.Fatalf("wanted %d, got: %d", want, got)
			}
		}

		n, err := s.GetInt(ctx, key)
		if err != nil {
			t.Fatal(err)
		}

		if n != 25 {
			t.Errorf("wanted 25, got: %d", n)
		}
	})

	t.Run("delta", func(t *testing.T) {
		key := uuid.NewString()

		if _, err := s.Increment(ctx, key, 41); err != nil {
			t.Fatal(err)
		}

		got, err := s.Increment(ctx, key, 1)
		if err != nil {
			t.Fatal(err)
		}

		if got != 42 {
			t.Errorf("wanted 42, got: %d", got)
		}
	})

	// The load-bearing property: concurrent increments never hand the same
	// value to two callers and never skip a value.
	t.Run("concurrent", func(t *testing.T) {
		const (
			workers   = 8
			perWorker = 16
		)

		key := uuid.NewString()
		results := make(chan int64, workers*perWorker)

		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range perWorker {
					n, err := s.Increment(ctx, key, 1)
					if err != nil {
						t.Errorf("can't increment: %v", err)
						return
					}
					results <- n
				}
			}()
		}
		wg.Wait()
		close(results)

		seen := map[int64]bool{}
		for n := range results {
			if seen[n] {
				t.Errorf("value %d was handed out twice", n)
			}
			seen[n] = true
		}

		total := int64(workers * perWorker)
		if int64(len(seen)) != total {
			t.Fatalf("wanted %d distinct values, got: %d", total, len(seen))
		}

		for i := int64(1); i <= total; i++ {
			if !seen[i] {
				t.Errorf("value %d was never handed out", i)
			}
		}
	})
}
