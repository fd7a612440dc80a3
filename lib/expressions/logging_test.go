package expressions

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestFilter(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	for _, tt := range []struct {
		name string
		src  string
		msg  string
		attr slog.Attr
		want bool
	}{
		{
			name: "matching record is suppressed",
			src:  `msg == "drop me"`,
			msg:  "drop me",
			want: false,
		},
		{
			name: "non-matching record passes",
			src:  `msg == "drop me"`,
			msg:  "keep me",
			want: true,
		},
		{
			name: "attribute match",
			src:  `"path" in attrs && attrs["path"] == "/healthz"`,
			msg:  "got request",
			attr: slog.String("path", "/healthz"),
			want: false,
		},
		{
			name: "attribute mismatch",
			src:  `"path" in attrs && attrs["path"] == "/healthz"`,
			msg:  "got request",
			attr: slog.String("path", "/count"),
			want: true,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := NewFilter(log, tt.name, tt.src)
			if err != nil {
				t.Fatalf("NewFilter() error = %v", err)
			}

			record := slog.NewRecord(time.Now(), slog.LevelInfo, tt.msg, 0)
			if tt.attr.Key != "" {
				record.AddAttrs(tt.attr)
			}

			if got := filter.Filter(t.Context(), record); got != tt.want {
				t.Errorf("Filter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func BenchmarkFilter(b *testing.B) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	filter, err := NewFilter(log, "benchmark", `msg == "hello"`)
	if err != nil {
		b.Fatalf("NewFilter() error = %v", err)
	}

	record := slog.NewRecord(time.Now(), slog.LevelInfo, "hello", 0)
	record.AddAttrs(slog.String("foo", "bar"))

	ctx := context.Background()

	b.ReportAllocs()

	for b.Loop() {
		filter.Filter(ctx, record)
	}
}
