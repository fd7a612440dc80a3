package counter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SeshatHQ/seshat/lib/store"
	"github.com/SeshatHQ/seshat/lib/store/memory"
)

func TestHitSequence(t *testing.T) {
	c := New(memory.New(t.Context()), "visits")

	for want := int64(1); want <= 10; want++ {
		got, err := c.Hit(t.Context())
		if err != nil {
			t.Fatalf("hit %d: %v", want, err)
		}

		if got != want {
			t.Errorf("wanted %d, got: %d", want, got)
		}
	}
}

func TestValue(t *testing.T) {
	c := New(memory.New(t.Context()), "visits")

	n, err := c.Value(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("fresh counter: wanted 0, got: %d", n)
	}

	if _, err := c.Hit(t.Context()); err != nil {
		t.Fatal(err)
	}

	n, err = c.Value(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("after one hit: wanted 1, got: %d", n)
	}
}

func TestCountersAreIndependent(t *testing.T) {
	st := memory.New(t.Context())

	blog := New(st, "blog")
	docs := New(st, "docs")

	for range 3 {
		if _, err := blog.Hit(t.Context()); err != nil {
			t.Fatal(err)
		}
	}

	n, err := docs.Hit(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	if n != 1 {
		t.Errorf("wanted 1, got: %d", n)
	}
}

var errStoreDown = errors.New("store is down")

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) { return nil, errStoreDown }
func (brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	return errStoreDown
}
func (brokenStore) Delete(context.Context, string) error { return errStoreDown }
func (brokenStore) Increment(context.Context, string, int64) (int64, error) {
	return 0, errStoreDown
}
func (brokenStore) GetInt(context.Context, string) (int64, error) { return 0, errStoreDown }

var _ store.Interface = brokenStore{}

func TestStoreDown(t *testing.T) {
	c := New(brokenStore{}, "visits")

	if _, err := c.Hit(t.Context()); !errors.Is(err, errStoreDown) {
		t.Errorf("wanted errStoreDown, got: %v", err)
	}

	if _, err := c.Value(t.Context()); !errors.Is(err, errStoreDown) {
		t.Errorf("wanted errStoreDown, got: %v", err)
	}
}
