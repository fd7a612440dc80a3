package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestFilterHandler(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, nil)

	drop := FilterFunc(func(_ context.Context, r slog.Record) bool {
		return !strings.Contains(r.Message, "secret")
	})

	log := slog.New(NewFilterHandler(base, drop))

	log.Info("hello")
	log.Info("secret plans")
	log.Info("goodbye")

	out := buf.String()

	if strings.Contains(out, "secret") {
		t.Error("filtered record was logged")
	}

	for _, want := range []string{"hello", "goodbye"} {
		if !strings.Contains(out, want) {
			t.Errorf("record %q is missing from output", want)
		}
	}
}

func TestFilterHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, nil)

	log := slog.New(NewFilterHandler(base)).With("component", "test")
	log.Info("hello")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatal(err)
	}

	if record["component"] != "test" {
		t.Errorf(`wanted component="test", got: %v`, record["component"])
	}
}

func TestStdlibLogger(t *testing.T) {
	var buf bytes.Buffer
	lg := StdlibLogger(slog.NewJSONHandler(&buf, nil), slog.LevelError)

	lg.Println("proxying failed")

	if !strings.Contains(buf.String(), "proxying failed") {
		t.Errorf("stdlib log line did not reach the handler: %q", buf.String())
	}
}

func TestInitWithSink(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(InitWithSink("ERROR", &buf))

	log.Info("too quiet")
	log.Error("loud")

	if strings.Contains(buf.String(), "too quiet") {
		t.Error("info record passed an ERROR-level handler")
	}

	if !strings.Contains(buf.String(), "loud") {
		t.Error("error record was dropped")
	}
}
