package memory

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/SeshatHQ/seshat/lib/store/storetest"
)

func TestImpl(t *testing.T) {
	storetest.Common(t, Factory{}, json.RawMessage(`{}`))
}

func TestCleanup(t *testing.T) {
	s := New(t.Context())

	if err := s.Set(t.Context(), "stale", []byte("x"), time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(t.Context(), "fresh", []byte("y"), time.Hour); err != nil {
		t.Fatal(err)
	}

	time.Sleep(5 * time.Millisecond)
	s.Cleanup()

	s.lock.RLock()
	defer s.lock.RUnlock()

	if _, ok := s.data["stale"]; ok {
		t.Error("expired entry survived Cleanup")
	}
	if _, ok := s.data["fresh"]; !ok {
		t.Error("live entry was removed by Cleanup")
	}
}
