package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/SeshatHQ/seshat"
	"github.com/SeshatHQ/seshat/lib/store"
	_ "github.com/SeshatHQ/seshat/lib/store/all"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	fname := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(fname, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	return fname
}

func TestLoadHCL(t *testing.T) {
	fname := writeConfig(t, "seshat.hcl", `
bind {
  http    = "localhost:0"
  metrics = "localhost:0"
}

store {
  backend    = "valkey"
  parameters = <<-EOF
    {"url": "redis://redis:6379/0"}
  EOF
}

counter {
  key           = "visits"
  store_timeout = "2s"
}

logging {
  sink  = "stdio"
  level = "INFO"

  filter {
    name       = "quiet health checks"
    expression = "\"path\" in attrs && attrs[\"path\"] == \"/healthz\""
  }
}

trusted_proxies = ["10.0.0.0/8"]
`)

	cfg, err := Load(fname)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Store.Backend != "valkey" {
		t.Errorf("wanted backend valkey, got: %q", cfg.Store.Backend)
	}

	if cfg.Counter.Key != "visits" {
		t.Errorf("wanted counter key visits, got: %q", cfg.Counter.Key)
	}

	if len(cfg.Logging.Filters) != 1 {
		t.Fatalf("wanted 1 log filter, got: %d", len(cfg.Logging.Filters))
	}

	if len(cfg.TrustedProxies) != 1 {
		t.Fatalf("wanted 1 trusted proxy range, got: %d", len(cfg.TrustedProxies))
	}

	if err := cfg.Valid(); err != nil {
		t.Errorf("config should be valid: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	fname := writeConfig(t, "seshat.yaml", `
bind:
  http: "localhost:0"
  metrics: "localhost:0"
store:
  backend: memory
`)

	cfg, err := Load(fname)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Store.Backend != "memory" {
		t.Errorf("wanted backend memory, got: %q", cfg.Store.Backend)
	}

	if err := cfg.Valid(); err != nil {
		t.Errorf("config should be valid: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	fname := writeConfig(t, "seshat.yaml", `
store:
  backend: memory
`)

	cfg, err := Load(fname)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Bind.HTTP != seshat.DefaultBind {
		t.Errorf("wanted default bind %q, got: %q", seshat.DefaultBind, cfg.Bind.HTTP)
	}

	if cfg.Bind.Metrics != seshat.DefaultMetricsBind {
		t.Errorf("wanted default metrics bind %q, got: %q", seshat.DefaultMetricsBind, cfg.Bind.Metrics)
	}

	if cfg.Counter.Key != seshat.DefaultCounterKey {
		t.Errorf("wanted default counter key %q, got: %q", seshat.DefaultCounterKey, cfg.Counter.Key)
	}

	if cfg.Logging.Sink != LogSinkStdio {
		t.Errorf("wanted default sink stdio, got: %q", cfg.Logging.Sink)
	}
}

func TestLoadUnknownExtension(t *testing.T) {
	fname := writeConfig(t, "seshat.toml", `backend = "memory"`)

	if _, err := Load(fname); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("wanted ErrUnknownFormat, got: %v", err)
	}
}

func TestStoreValid(t *testing.T) {
	for _, tt := range []struct {
		name  string
		input Store
		want  error
	}{
		{
			name:  "memory backend",
			input: Store{Backend: "memory"},
		},
		{
			name:  "valkey with parameters",
			input: Store{Backend: "valkey", Parameters: `{"url": "redis://localhost:6379/0"}`},
		},
		{
			name:  "no backend",
			input: Store{},
			want:  ErrNoStoreBackend,
		},
		{
			name:  "unknown backend",
			input: Store{Backend: "papyrus"},
			want:  store.ErrUnknownBackend,
		},
		{
			name:  "backend rejects parameters",
			input: Store{Backend: "valkey", Parameters: `{}`},
			want:  store.ErrBadConfig,
		},
		{
			name:  "malformed parameters",
			input: Store{Backend: "memory", Parameters: `{"unterminated": `},
			want:  store.ErrBadConfig,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Valid()

			if !errors.Is(err, tt.want) {
				t.Logf("wanted error: %v", tt.want)
				t.Logf("   got error: %v", err)
				t.Fatal("got wrong error")
			}
		})
	}
}

func TestCounterValid(t *testing.T) {
	for _, tt := range []struct {
		name  string
		input Counter
		want  error
	}{
		{
			name:  "empty",
			input: Counter{},
		},
		{
			name:  "valid timeout",
			input: Counter{StoreTimeout: "500ms"},
		},
		{
			name:  "garbage timeout",
			input: Counter{StoreTimeout: "over nine thousand"},
			want:  ErrBadDuration,
		},
		{
			name:  "negative timeout",
			input: Counter{StoreTimeout: "-2s"},
			want:  ErrBadDuration,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Valid()

			if !errors.Is(err, tt.want) {
				t.Logf("wanted error: %v", tt.want)
				t.Logf("   got error: %v", err)
				t.Fatal("got wrong error")
			}
		})
	}
}
