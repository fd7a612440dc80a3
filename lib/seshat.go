// Package lib implements the visit counter service: the HTTP surface, the
// middleware around it, and the glue between the counter and the live feed.
package lib

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/SeshatHQ/seshat"
	"github.com/SeshatHQ/seshat/internal"
	"github.com/SeshatHQ/seshat/lib/counter"
	"github.com/SeshatHQ/seshat/lib/feed"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ErrNoCounter = errors.New("lib: Options.Counter is required")

	requestsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seshat",
		Name:      "requests_processed",
		Help:      "Requests served per route and status code",
	}, []string{"route", "status"})
)

// DefaultStoreTimeout bounds how long one request waits on the store. Two
// seconds is long enough for a slow disk and short enough that a dead store
// turns into a 503 before the client gives up.
const DefaultStoreTimeout = 2 * time.Second

type Options struct {
	Counter *counter.Counter

	// Feed is optional. When nil the service runs without the live feed.
	Feed *feed.Hub

	// StoreTimeout bounds every store call made on behalf of one request.
	// Zero means DefaultStoreTimeout.
	StoreTimeout time.Duration

	// TrustedProxies controls whose X-Forwarded-For headers are believed.
	TrustedProxies *internal.TrustedProxies
}

// Server carries the handlers for every route the service exposes.
type Server struct {
	counter      *counter.Counter
	feed         *feed.Hub
	storeTimeout time.Duration
	trusted      *internal.TrustedProxies
}

func New(opts Options) (*Server, error) {
	if opts.Counter == nil {
		return nil, ErrNoCounter
	}

	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultStoreTimeout
	}

	return &Server{
		counter:      opts.Counter,
		feed:         opts.Feed,
		storeTimeout: opts.StoreTimeout,
		trusted:      opts.TrustedProxies,
	}, nil
}

// Mount registers every route and the middleware around them on r.
func (s *Server) Mount(r *mux.Router) {
	r.Use(RequestID)
	r.Use(s.logRequests)

	r.HandleFunc("/", s.Index).Methods(http.MethodGet).Name("index")
	r.HandleFunc("/count", s.Count).Methods(http.MethodGet).Name("count")
	r.Handle("/healthz", internal.HealthHandler()).Methods(http.MethodGet).Name("healthz")

	if s.feed != nil {
		r.Handle("/feed", s.feed.Handler(s.snapshot)).Methods(http.MethodGet).Name("feed")
	}
}

// Index serves the greeting. The body is a frozen contract, see
// seshat.WelcomeText.
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, seshat.WelcomeText)
}

// Count registers one visit and tells the visitor which one it was. When
// the store is unreachable the visit does not count and the client gets a
// 503 with a stable body instead of a number that could be wrong.
func (s *Server) Count(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.storeTimeout)
	defer cancel()

	n, err := s.counter.Hit(ctx)
	if err != nil {
		http.Error(w, seshat.CounterUnavailableText, http.StatusServiceUnavailable)
		return
	}

	if s.feed != nil {
		s.feed.Notify(n)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, seshat.CountBodyFormat, n)
}

// snapshot reads the tally for the feed's connection greeting, bounded by
// the same timeout as the request path.
func (s *Server) snapshot(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	return s.counter.Value(ctx)
}

type ctxKey int

const requestIDKey ctxKey = 0

// RequestID tags every request and its response with a correlation ID,
// honoring one the proxy in front already assigned.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// RequestIDFromContext returns the correlation ID RequestID assigned.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lg := internal.GetRequestLogger(slog.Default(), r)

		if addr, ok := internal.ClientIP(r, s.trusted); ok {
			if network, ok := internal.VisitorNetwork(addr); ok {
				lg = lg.With("visitor_network", network.String())
			}
		}

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		begin := time.Now()
		next.ServeHTTP(sw, r)

		status := sw.status
		if sw.hijacked {
			status = http.StatusSwitchingProtocols
		}

		route := "unknown"
		if cur := mux.CurrentRoute(r); cur != nil && cur.GetName() != "" {
			route = cur.GetName()
		}
		requestsProcessed.WithLabelValues(route, fmt.Sprint(status)).Inc()

		lg.Info("handled request",
			"route", route,
			"status", status,
			"dur_ms", time.Since(begin).Milliseconds(),
			"request_id", RequestIDFromContext(r.Context()),
		)
	})
}

// statusWriter remembers what the handler did with the connection so the
// request log can report it.
type statusWriter struct {
	http.ResponseWriter
	status   int
	hijacked bool
}

func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

// Hijack passes through so the WebSocket upgrade keeps working behind the
// logging middleware.
func (sw *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := sw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("lib: %T is not an http.Hijacker", sw.ResponseWriter)
	}

	sw.hijacked = true
	return hj.Hijack()
}
