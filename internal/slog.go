package internal

import (
	"fmt"
	"log/slog"
	"os"
)

// InitSlog installs the process-wide default logger: JSON records on stderr
// with source locations, at the requested level. Call it before anything else
// logs; the entrypoint may later swap the default for a configured handler
// (file sink, filters) without touching callers.
func InitSlog(level string) {
	var programLevel slog.Level
	if err := (&programLevel).UnmarshalText([]byte(level)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %s: %v, using info\n", level, err)
		programLevel = slog.LevelInfo
	}

	leveler := &slog.LevelVar{}
	leveler.Set(programLevel)

	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: true,
		Level:     leveler,
	})

	slog.SetDefault(slog.New(h))
}
