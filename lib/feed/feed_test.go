package feed

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestFeed(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(hub.Handler(func(context.Context) (int64, error) {
		return 41, nil
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}

	if ev.Type != "visit_count" || ev.Count != 41 {
		t.Errorf("greeting: wanted visit_count/41, got: %s/%d", ev.Type, ev.Count)
	}

	hub.Notify(42)

	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}

	if ev.Count != 42 {
		t.Errorf("broadcast: wanted 42, got: %d", ev.Count)
	}
}

// Notify must never block the request path, subscribers or not.
func TestNotifyWithoutSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	for i := range 100 {
		hub.Notify(int64(i))
	}
}
