// Package store defines the pluggable persistence layer: a tiny key-value
// surface plus the atomic counter primitive the visit counter is built on.
// Backends register themselves by name and are constructed from opaque JSON
// parameters, so deployments pick storage in config instead of code.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when a key does not exist (or has expired).
	ErrNotFound = errors.New("store: key not found")

	// ErrBadConfig is returned when backend parameters cannot be parsed or
	// fail validation.
	ErrBadConfig = errors.New("store: invalid backend configuration")

	// ErrUnknownBackend is returned when no factory is registered under the
	// requested name.
	ErrUnknownBackend = errors.New("store: unknown backend")
)

// Interface is what every backend provides.
//
// Increment and GetInt exist so counters never degrade into a get-then-set
// done by the caller: Increment is a single indivisible operation in the
// backend, an absent key counts as zero, and the returned value is the one
// this exact call produced. Concurrent increments therefore never lose
// updates and never hand two callers the same value.
type Interface interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, expiry time.Duration) error
	Delete(ctx context.Context, key string) error

	// Increment atomically adds delta to the named counter and returns the
	// new value. A missing counter starts at zero.
	Increment(ctx context.Context, key string, delta int64) (int64, error)

	// GetInt reads the named counter without changing it. A missing counter
	// reads as zero, not as an error.
	GetInt(ctx context.Context, key string) (int64, error)
}

// Persistent is implemented by backends whose data outlives the process.
type Persistent interface {
	IsPersistent() bool
}

// IsPersistent reports whether s survives a restart. Backends that don't say
// are assumed not to.
func IsPersistent(s Interface) bool {
	if p, ok := s.(Persistent); ok {
		return p.IsPersistent()
	}

	return false
}

// Factory builds backend instances from the opaque parameters blob found in
// configuration. Valid must reject anything Build would choke on, so
// configuration errors surface at startup instead of first use.
type Factory interface {
	Build(ctx context.Context, data json.RawMessage) (Interface, error)
	Valid(data json.RawMessage) error
}

var (
	registry = map[string]Factory{}
	regLock  sync.RWMutex
)

// Register makes a backend available under name. Backends call this from
// init; importing lib/store/all pulls in every built-in one.
func Register(name string, factory Factory) {
	regLock.Lock()
	defer regLock.Unlock()

	registry[name] = factory
}

// Get returns the factory registered under name.
func Get(name string) (Factory, bool) {
	regLock.RLock()
	defer regLock.RUnlock()

	result, ok := registry[name]
	return result, ok
}

// Backends lists every registered backend name, sorted.
func Backends() []string {
	regLock.RLock()
	defer regLock.RUnlock()

	var result []string
	for name := range registry {
		result = append(result, name)
	}
	sort.Strings(result)

	return result
}
