// Package counter tracks page visits in a store backend.
package counter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SeshatHQ/seshat/lib/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seshat",
		Subsystem: "counter",
		Name:      "hits",
		Help:      "Outcomes of visit counter increments",
	}, []string{"result"})

	storeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "seshat",
		Subsystem: "counter",
		Name:      "store_op_duration_seconds",
		Help:      "How long store operations take per operation kind",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16),
	}, []string{"op"})
)

// Counter increments and reads one named tally in a store backend. The
// backend is the source of truth and Counter keeps no local state, so any
// number of replicas can share one store and agree on the numbers.
type Counter struct {
	store store.Interface
	key   string
}

func New(st store.Interface, key string) *Counter {
	return &Counter{store: st, key: key}
}

// Key returns the store key this counter writes to.
func (c *Counter) Key() string { return c.key }

// Hit registers one visit and returns the tally that visit produced. The
// increment happens inside the store, so two concurrent hits can never
// observe the same value.
func (c *Counter) Hit(ctx context.Context) (int64, error) {
	begin := time.Now()
	n, err := c.store.Increment(ctx, c.key, 1)
	storeLatency.WithLabelValues("increment").Observe(time.Since(begin).Seconds())

	if err != nil {
		hits.WithLabelValues("error").Inc()
		slog.Error("can't increment visit counter", "key", c.key, "err", err)
		return 0, fmt.Errorf("counter: can't increment %q: %w", c.key, err)
	}

	hits.WithLabelValues("ok").Inc()

	return n, nil
}

// Value reads the current tally without changing it. A counter nobody has
// hit yet reads as zero.
func (c *Counter) Value(ctx context.Context) (int64, error) {
	begin := time.Now()
	n, err := c.store.GetInt(ctx, c.key)
	storeLatency.WithLabelValues("get").Observe(time.Since(begin).Seconds())

	if err != nil {
		return 0, fmt.Errorf("counter: can't read %q: %w", c.key, err)
	}

	return n, nil
}
