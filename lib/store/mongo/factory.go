package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SeshatHQ/seshat/lib/store"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNoURI      = errors.New("store/mongo: no connection URI specified")
	ErrNoDatabase = errors.New("store/mongo: no database specified")
)

// DefaultCollection is where key/value pairs land unless the config says
// otherwise. Counters go into a sibling collection with a _counters suffix
// so a key and a counter with the same name never collide.
const DefaultCollection = "kv"

func init() {
	store.Register("mongo", Factory{})
}

type Config struct {
	URI        string `json:"uri"`
	Database   string `json:"database"`
	Collection string `json:"collection,omitempty"`
}

func (c Config) Valid() error {
	var errs []error

	if c.URI == "" {
		errs = append(errs, ErrNoURI)
	}

	if c.Database == "" {
		errs = append(errs, ErrNoDatabase)
	}

	if len(errs) != 0 {
		return fmt.Errorf("store/mongo: config is invalid: %w", errors.Join(errs...))
	}

	return nil
}

type Factory struct{}

func (Factory) Build(ctx context.Context, data json.RawMessage) (store.Interface, error) {
	config, err := parseConfig(data)
	if err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("store/mongo: can't connect: %w", err)
	}

	// Connect does not dial eagerly, so ping here to fail fast on a wrong
	// URI instead of on the first visitor.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("store/mongo: can't reach server: %w", err)
	}

	collection := config.Collection
	if collection == "" {
		collection = DefaultCollection
	}

	db := client.Database(config.Database)

	return &Store{
		client:   client,
		kv:       db.Collection(collection),
		counters: db.Collection(collection + "_counters"),
	}, nil
}

func (Factory) Valid(data json.RawMessage) error {
	if _, err := parseConfig(data); err != nil {
		return err
	}

	return nil
}

func parseConfig(data json.RawMessage) (*Config, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	if err := config.Valid(); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	return &config, nil
}
