// Package entrypoint turns a validated configuration into a running
// service and owns its lifecycle from first listen to graceful shutdown.
package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/SeshatHQ/seshat"
	"github.com/SeshatHQ/seshat/cmd/seshat/internal/config"
	"github.com/SeshatHQ/seshat/internal"
	"github.com/SeshatHQ/seshat/lib"
	"github.com/SeshatHQ/seshat/lib/counter"
	"github.com/SeshatHQ/seshat/lib/expressions"
	"github.com/SeshatHQ/seshat/lib/feed"
	"github.com/SeshatHQ/seshat/lib/logging"
	"github.com/SeshatHQ/seshat/lib/store"
	_ "github.com/SeshatHQ/seshat/lib/store/all"
	logrotate "github.com/fahedouch/go-logrotate"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	healthv1 "google.golang.org/grpc/health/grpc_health_v1"
)

type Options struct {
	// ConfigFname is the configuration file to load. Ignored when Config
	// is set directly (the flags-only path).
	ConfigFname string
	Config      *config.Toplevel

	// SlogLevel is the log level from flags. A level in the config file
	// wins over it.
	SlogLevel string
}

var ErrNoConfig = errors.New("entrypoint: no configuration given")

func Main(opts Options) error {
	internal.SetHealth("seshat", healthv1.HealthCheckResponse_NOT_SERVING)
	internal.SetHealth("store", healthv1.HealthCheckResponse_NOT_SERVING)

	cfg := opts.Config
	if cfg == nil {
		if opts.ConfigFname == "" {
			return ErrNoConfig
		}

		var err error
		cfg, err = config.Load(opts.ConfigFname)
		if err != nil {
			return err
		}
	}

	if err := cfg.Valid(); err != nil {
		return fmt.Errorf("configuration is invalid:\n\n%w", err)
	}

	if err := setupLogging(cfg, opts.SlogLevel); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(st)

	if err := probeStore(ctx, st); err != nil {
		return err
	}
	internal.SetHealth("store", healthv1.HealthCheckResponse_SERVING)

	key := seshat.DefaultCounterKey
	var storeTimeout time.Duration
	if cfg.Counter != nil {
		if cfg.Counter.Key != "" {
			key = cfg.Counter.Key
		}
		storeTimeout = cfg.Counter.Timeout()
	}

	ctr := counter.New(st, key)

	hub := feed.NewHub()
	go hub.Run(ctx)

	trusted, err := trustedProxies(cfg.TrustedProxies)
	if err != nil {
		return err
	}

	srv, err := lib.New(lib.Options{
		Counter:        ctr,
		Feed:           hub,
		StoreTimeout:   storeTimeout,
		TrustedProxies: trusted,
	})
	if err != nil {
		return err
	}

	r := mux.NewRouter()
	srv.Mount(r)

	go metricsServer(ctx, cfg.Bind.Metrics)

	httpSrv := &http.Server{
		Addr:              cfg.Bind.HTTP,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog: log.New(&internal.ErrorLogFilter{
			Unwrap: logging.StdlibLogger(slog.Default().Handler(), slog.LevelError),
		}, "", 0),
	}

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("listening",
			"http", cfg.Bind.HTTP,
			"metrics", cfg.Bind.Metrics,
			"backend", cfg.Store.Backend,
			"counter_key", key,
			"version", seshat.Version,
		)
		internal.SetHealth("seshat", healthv1.HealthCheckResponse_SERVING)

		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	internal.SetHealth("seshat", healthv1.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("can't shut down cleanly: %w", err)
	}

	return nil
}

// setupLogging swaps the process default logger for the configured one:
// chosen sink, chosen level, CEL filters compiled and installed.
func setupLogging(cfg *config.Toplevel, flagLevel string) error {
	level := flagLevel
	var sink io.Writer = os.Stderr
	var filterConfigs []config.LogFilter

	if cfg.Logging != nil {
		if cfg.Logging.Level != "" {
			level = cfg.Logging.Level
		}

		if cfg.Logging.Sink == config.LogSinkFile {
			p := cfg.Logging.Parameters
			sink = &logrotate.Logger{
				Filename:   p.Filename,
				MaxBytes:   p.MaxBytes,
				MaxBackups: p.MaxBackups,
				MaxAge:     p.MaxAge,
				Compress:   p.Compress,
				LocalTime:  p.UseLocalTime,
			}
		}

		filterConfigs = cfg.Logging.Filters
	}

	handler := logging.InitWithSink(level, sink)

	// Filters log their own failures through the unfiltered handler so a
	// broken filter can't silence its own error report.
	filterLog := slog.New(handler)

	var filters []logging.Filterer
	for _, lf := range filterConfigs {
		f, err := expressions.NewFilter(filterLog, lf.Name, lf.Expression)
		if err != nil {
			return fmt.Errorf("can't compile log filter %q: %w", lf.Name, err)
		}
		filters = append(filters, f)
	}

	if len(filters) != 0 {
		slog.SetDefault(slog.New(logging.NewFilterHandler(handler, filters...)))
	} else {
		slog.SetDefault(slog.New(handler))
	}

	return nil
}

func buildStore(ctx context.Context, cfg *config.Toplevel) (store.Interface, error) {
	factory, ok := store.Get(cfg.Store.Backend)
	if !ok {
		return nil, fmt.Errorf("%w: %q", store.ErrUnknownBackend, cfg.Store.Backend)
	}

	st, err := factory.Build(ctx, cfg.Store.ParamsJSON())
	if err != nil {
		return nil, fmt.Errorf("can't build %s store: %w", cfg.Store.Backend, err)
	}

	if cfg.Store.Serialized {
		return store.NewActorifiedStore(st), nil
	}

	return st, nil
}

func closeStore(st store.Interface) {
	if as, ok := st.(*store.ActorifiedStore); ok {
		as.Close()
		st = as.Interface
	}

	if closer, ok := st.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			slog.Error("can't close store", "err", err)
		}
	}
}

// probeStore runs one write/read/delete roundtrip so a store that is
// reachable but broken fails the boot instead of the first visitor.
func probeStore(ctx context.Context, st store.Interface) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := "startup-probe-" + uuid.NewString()

	if err := st.Set(ctx, key, []byte("ok"), time.Minute); err != nil {
		return fmt.Errorf("store probe: can't write: %w", err)
	}

	if _, err := st.Get(ctx, key); err != nil {
		return fmt.Errorf("store probe: can't read back: %w", err)
	}

	if err := st.Delete(ctx, key); err != nil {
		return fmt.Errorf("store probe: can't delete: %w", err)
	}

	return nil
}

func trustedProxies(ranges []string) (*internal.TrustedProxies, error) {
	if len(ranges) == 0 {
		return nil, nil
	}

	prefixes := make([]netip.Prefix, 0, len(ranges))
	for _, raw := range ranges {
		prefix, err := netip.ParsePrefix(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: trusted proxy range %q: %v", seshat.ErrMisconfiguration, raw, err)
		}
		prefixes = append(prefixes, prefix)
	}

	return internal.NewTrustedProxies(prefixes), nil
}
