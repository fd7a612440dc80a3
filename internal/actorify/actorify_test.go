package actorify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCall(t *testing.T) {
	a := New(t.Context(), func(ctx context.Context, input int) (int, error) {
		return input * 2, nil
	})

	result, err := a.Call(t.Context(), 21)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}

	if result != 42 {
		t.Errorf("result = %d, want 42", result)
	}
}

func TestCallPropagatesErrors(t *testing.T) {
	errBoom := errors.New("boom")

	a := New(t.Context(), func(ctx context.Context, input int) (int, error) {
		return 0, errBoom
	})

	if _, err := a.Call(t.Context(), 1); !errors.Is(err, errBoom) {
		t.Errorf("err = %v, want %v", err, errBoom)
	}
}

func TestCallsAreSerialized(t *testing.T) {
	// No locking on purpose. The race detector screams if two handler
	// invocations ever overlap.
	counter := 0

	a := New(t.Context(), func(ctx context.Context, input int) (int, error) {
		counter++
		return counter, nil
	})

	const workers = 16
	const callsPerWorker = 25

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range callsPerWorker {
				if _, err := a.Call(t.Context(), 0); err != nil {
					t.Errorf("Call: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	result, err := a.Call(t.Context(), 0)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}

	if result != workers*callsPerWorker+1 {
		t.Errorf("counter = %d, want %d", result, workers*callsPerWorker+1)
	}
}

func TestActorDies(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())

	a := New(ctx, func(ctx context.Context, input int) (int, error) {
		return input, nil
	})

	if _, err := a.Call(t.Context(), 1); err != nil {
		t.Fatalf("Call before cancel: %v", err)
	}

	cancel()
	<-a.done

	if _, err := a.Call(t.Context(), 1); !errors.Is(err, ErrActorDied) {
		t.Errorf("err = %v, want %v", err, ErrActorDied)
	}
}

func TestCallHonorsCallerContext(t *testing.T) {
	release := make(chan struct{})

	a := New(t.Context(), func(ctx context.Context, input int) (int, error) {
		<-release
		return input, nil
	})
	defer close(release)

	// Park the actor on a slow call so the next one has to wait.
	go a.Call(t.Context(), 1)
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	if _, err := a.Call(ctx, 2); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want %v", err, context.DeadlineExceeded)
	}
}
