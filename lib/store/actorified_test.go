package store_test

import (
	"sync"
	"testing"

	"github.com/SeshatHQ/seshat/lib/store"
	"github.com/SeshatHQ/seshat/lib/store/memory"
	"github.com/SeshatHQ/seshat/lib/store/storetest"
)

func TestActorifiedStore(t *testing.T) {
	st := store.NewActorifiedStore(memory.New(t.Context()))
	defer st.Close()

	storetest.Impl(t, st)
}

// The wrapper's whole job is to serialize access, so hammer it from many
// goroutines and make sure nothing deadlocks and every call lands.
func TestActorifiedStoreConcurrent(t *testing.T) {
	st := store.NewActorifiedStore(memory.New(t.Context()))
	defer st.Close()

	const workers = 16

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.Increment(t.Context(), "hits", 1); err != nil {
				t.Errorf("can't increment: %v", err)
			}
		}()
	}
	wg.Wait()

	n, err := st.GetInt(t.Context(), "hits")
	if err != nil {
		t.Fatal(err)
	}

	if n != workers {
		t.Errorf("wanted %d, got: %d", workers, n)
	}
}
