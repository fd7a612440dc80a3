package internal

import (
	"log"
	"log/slog"
	"net/http"
	"strings"
)

// GetRequestLogger scopes base to one inbound request so every record carries
// the same identifying attributes.
func GetRequestLogger(base *slog.Logger, r *http.Request) *slog.Logger {
	return base.With(
		"host", r.Host,
		"method", r.Method,
		"path", r.URL.Path,
		"user_agent", r.UserAgent(),
		"x-forwarded-for", r.Header.Get("X-Forwarded-For"),
	)
}

// suppressedErrorLines are net/http server complaints that carry no signal for
// us: port scanners speaking TLS at a plaintext listener, and clients that
// hang up mid-response.
var suppressedErrorLines = []string{
	"http: TLS handshake error",
	"http: proxy error: context canceled",
}

// ErrorLogFilter is an io.Writer meant for http.Server.ErrorLog. Lines
// matching a suppressed pattern are dropped; everything else is forwarded to
// Unwrap verbatim.
type ErrorLogFilter struct {
	Unwrap *log.Logger
}

func (elf *ErrorLogFilter) Write(p []byte) (int, error) {
	line := string(p)

	for _, needle := range suppressedErrorLines {
		if strings.Contains(line, needle) {
			return len(p), nil
		}
	}

	elf.Unwrap.Print(strings.TrimSuffix(line, "\n"))
	return len(p), nil
}
