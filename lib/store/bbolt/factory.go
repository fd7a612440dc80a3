package bbolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SeshatHQ/seshat/lib/store"
	bolt "go.etcd.io/bbolt"
)

func init() {
	store.Register("bbolt", Factory{})
}

var (
	ErrMissingPath = errors.New("bbolt.Config: no database path defined")
)

// DefaultBucket is used when the config does not name one.
const DefaultBucket = "seshat"

type Config struct {
	Path   string `json:"path"`
	Bucket string `json:"bucket,omitempty"`
}

func (c Config) Valid() error {
	if c.Path == "" {
		return ErrMissingPath
	}

	return nil
}

type Factory struct{}

func (Factory) Valid(data json.RawMessage) error {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	if err := cfg.Valid(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	return nil
}

func (Factory) Build(_ context.Context, data json.RawMessage) (store.Interface, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}
	if err := cfg.Valid(); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	if cfg.Bucket == "" {
		cfg.Bucket = DefaultBucket
	}

	db, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt.Factory: can't open %s: %w", cfg.Path, err)
	}

	result := &Store{
		db:       db,
		kv:       []byte(cfg.Bucket),
		counters: []byte(cfg.Bucket + ".counters"),
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(result.kv); err != nil {
			return err
		}

		_, err := tx.CreateBucketIfNotExists(result.counters)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bbolt.Factory: can't create buckets: %w", err)
	}

	return result, nil
}
