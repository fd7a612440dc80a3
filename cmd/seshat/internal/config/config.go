// Package config is the on-disk configuration of the seshat binary. Files
// can be HCL (the default), HCL's JSON dialect, or YAML; all three decode
// into the same Toplevel.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/SeshatHQ/seshat"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"sigs.k8s.io/yaml"
)

var (
	ErrMissingValue  = errors.New("config: missing value")
	ErrUnknownFormat = errors.New("config: unknown file format")
)

type Toplevel struct {
	Bind    *Bind    `hcl:"bind,block" json:"bind,omitempty"`
	Store   Store    `hcl:"store,block" json:"store"`
	Logging *Logging `hcl:"logging,block" json:"logging,omitempty"`
	Counter *Counter `hcl:"counter,block" json:"counter,omitempty"`

	// TrustedProxies lists CIDR ranges whose X-Forwarded-For headers are
	// believed when attributing visits.
	TrustedProxies []string `hcl:"trusted_proxies,optional" json:"trustedProxies,omitempty"`
}

func (t *Toplevel) Valid() error {
	var errs []error

	if t.Bind == nil {
		errs = append(errs, fmt.Errorf("%w: bind block", ErrMissingValue))
	} else if err := t.Bind.Valid(); err != nil {
		errs = append(errs, err)
	}

	if err := t.Store.Valid(); err != nil {
		errs = append(errs, err)
	}

	if t.Logging != nil {
		if err := t.Logging.Valid(); err != nil {
			errs = append(errs, err)
		}
	}

	if t.Counter != nil {
		if err := t.Counter.Valid(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) != 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Load reads fname, decodes it by extension, and fills in defaults for
// anything the file leaves out. Call Valid on the result before using it.
func Load(fname string) (*Toplevel, error) {
	var cfg Toplevel

	switch strings.ToLower(filepath.Ext(fname)) {
	case ".hcl", ".json":
		if err := hclsimple.DecodeFile(fname, nil, &cfg); err != nil {
			return nil, fmt.Errorf("config: can't read %s:\n\n%w", fname, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(fname)
		if err != nil {
			return nil, fmt.Errorf("config: can't read %s: %w", fname, err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: can't parse %s: %w", fname, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, fname)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func (t *Toplevel) applyDefaults() {
	if t.Bind == nil {
		t.Bind = &Bind{}
	}

	if t.Bind.HTTP == "" {
		t.Bind.HTTP = seshat.DefaultBind
	}

	if t.Bind.Metrics == "" {
		t.Bind.Metrics = seshat.DefaultMetricsBind
	}

	if t.Logging == nil {
		t.Logging = (Logging{}).Default()
	}

	if t.Counter == nil {
		t.Counter = &Counter{}
	}

	if t.Counter.Key == "" {
		t.Counter.Key = seshat.DefaultCounterKey
	}
}
