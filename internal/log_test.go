package internal

import (
	"bytes"
	"log"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestErrorLogFilter(t *testing.T) {
	var buf bytes.Buffer
	dest := log.New(&buf, "", 0)
	filtered := log.New(&ErrorLogFilter{Unwrap: dest}, "", 0)

	tests := []struct {
		name       string
		message    string
		suppressed bool
	}{
		{
			name:       "TLS handshake noise",
			message:    "http: TLS handshake error from 127.0.0.1:4444: EOF",
			suppressed: true,
		},
		{
			name:       "canceled proxy request",
			message:    "http: proxy error: context canceled",
			suppressed: true,
		},
		{
			name:       "real error",
			message:    "http: Accept error: too many open files",
			suppressed: false,
		},
		{
			name:       "suppressed needle mid-line",
			message:    "wrapped: http: TLS handshake error from somewhere",
			suppressed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()

			filtered.Print(tt.message)

			got := buf.String()
			if tt.suppressed && got != "" {
				t.Errorf("message was not suppressed, got %q", got)
			}
			if !tt.suppressed && !strings.Contains(got, tt.message) {
				t.Errorf("message was dropped, got %q", got)
			}
		})
	}
}

func TestGetRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	r := httptest.NewRequest("GET", "/count", nil)
	r.Header.Set("User-Agent", "seshat-test/1.0")

	lg := GetRequestLogger(base, r)
	if lg == nil {
		t.Fatal("GetRequestLogger returned nil")
	}

	lg.Info("hello")

	out := buf.String()
	for _, want := range []string{`"path":"/count"`, `"method":"GET"`, `"user_agent":"seshat-test/1.0"`} {
		if !strings.Contains(out, want) {
			t.Errorf("record missing %s: %s", want, out)
		}
	}
}
