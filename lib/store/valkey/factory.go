package valkey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SeshatHQ/seshat/lib/store"
	valkey "github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"
)

func init() {
	store.Register("valkey", Factory{})
}

var (
	ErrNoURL  = errors.New("valkey.Config: no URL defined")
	ErrBadURL = errors.New("valkey.Config: URL is invalid")
)

// Config is unmarshaled from the backend's "parameters" JSON.
type Config struct {
	URL     string `json:"url"`
	Cluster bool   `json:"cluster,omitempty"`
}

func (c Config) Valid() error {
	if c.URL == "" {
		return ErrNoURL
	}

	if _, err := valkey.ParseURL(c.URL); err != nil {
		return fmt.Errorf("%w: %v", ErrBadURL, err)
	}

	return nil
}

// redisClient is satisfied by both *valkey.Client and *valkey.ClusterClient.
type redisClient interface {
	Get(ctx context.Context, key string) *valkey.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *valkey.StatusCmd
	Del(ctx context.Context, keys ...string) *valkey.IntCmd
	IncrBy(ctx context.Context, key string, value int64) *valkey.IntCmd
	Ping(ctx context.Context) *valkey.StatusCmd
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

func (Factory) Build(ctx context.Context, data json.RawMessage) (store.Interface, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}
	if err := cfg.Valid(); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	opts, err := valkey.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("valkey.Factory: %w", err)
	}

	var client redisClient

	if cfg.Cluster {
		// Cluster mode: the parsed Addr seeds topology discovery.
		client = valkey.NewClusterClient(&valkey.ClusterOptions{
			Addrs: []string{opts.Addr},
			// Keep the client from sending CLIENT MAINT_NOTIFICATIONS ON,
			// which Valkey rejects.
			MaintNotificationsConfig: &maintnotifications.Config{
				Mode: maintnotifications.ModeDisabled,
			},
		})
	} else {
		opts.MaintNotificationsConfig = &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		}
		client = valkey.NewClient(opts)
	}

	// Fail at startup, not on the first visit, if the server is unreachable.
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("valkey.Factory: ping failed: %w", err)
	}

	return &Store{client: client}, nil
}
