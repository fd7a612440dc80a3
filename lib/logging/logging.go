// Package logging builds the slog handler chain: a JSON handler over some
// sink, optionally wrapped with user-configured filters.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Init builds a JSON handler writing to standard error.
func Init(level string) slog.Handler {
	return InitWithSink(level, os.Stderr)
}

// InitWithSink builds a JSON handler writing to w. Unparseable levels fall
// back to info rather than refusing to start.
func InitWithSink(level string, w io.Writer) slog.Handler {
	var programLevel slog.Level
	if err := (&programLevel).UnmarshalText([]byte(level)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %s: %v, using info\n", level, err)
		programLevel = slog.LevelInfo
	}

	leveler := &slog.LevelVar{}
	leveler.Set(programLevel)

	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: true,
		Level:     leveler,
	})
}
