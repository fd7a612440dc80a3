package config

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrBadDuration = errors.New("config.Counter: invalid duration")
)

type Counter struct {
	// Key is the store key the tally lives under. Replicas that share a
	// store and a key share a counter.
	Key string `hcl:"key,optional" json:"key,omitempty"`

	// StoreTimeout bounds each store call made for one request, as a Go
	// duration string such as "2s".
	StoreTimeout string `hcl:"store_timeout,optional" json:"storeTimeout,omitempty"`
}

func (c *Counter) Valid() error {
	if c.StoreTimeout == "" {
		return nil
	}

	d, err := time.ParseDuration(c.StoreTimeout)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrBadDuration, c.StoreTimeout, err)
	}

	if d <= 0 {
		return fmt.Errorf("%w: %q is not positive", ErrBadDuration, c.StoreTimeout)
	}

	return nil
}

// Timeout returns the parsed timeout, or zero when unset so callers can
// substitute their default.
func (c *Counter) Timeout() time.Duration {
	if c.StoreTimeout == "" {
		return 0
	}

	d, err := time.ParseDuration(c.StoreTimeout)
	if err != nil {
		return 0
	}

	return d
}
