package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/SeshatHQ/seshat/lib/store"
)

var (
	ErrNoStoreBackend = errors.New("config: no store backend specified")
)

// Store picks which backend holds the counter and hands it its parameters.
// Parameters is a JSON document; in HCL a heredoc keeps it readable:
//
//	store {
//	  backend    = "valkey"
//	  parameters = <<-EOF
//	    {"url": "redis://redis:6379/0"}
//	  EOF
//	}
type Store struct {
	Backend    string `hcl:"backend" json:"backend"`
	Parameters string `hcl:"parameters,optional" json:"parameters,omitempty"`

	// Serialized routes every store call through one actor per operation
	// kind. Useful to calm down backends that dislike concurrent callers.
	Serialized bool `hcl:"serialized,optional" json:"serialized,omitempty"`
}

// ParamsJSON returns the parameters blob the backend factory consumes.
func (s *Store) ParamsJSON() json.RawMessage {
	if strings.TrimSpace(s.Parameters) == "" {
		return json.RawMessage(`{}`)
	}

	return json.RawMessage(s.Parameters)
}

func (s *Store) Valid() error {
	if s.Backend == "" {
		return ErrNoStoreBackend
	}

	factory, ok := store.Get(s.Backend)
	if !ok {
		return fmt.Errorf("%w: %q (have: %s)", store.ErrUnknownBackend, s.Backend, strings.Join(store.Backends(), ", "))
	}

	if err := factory.Valid(s.ParamsJSON()); err != nil {
		return fmt.Errorf("config: store backend %q rejected its parameters: %w", s.Backend, err)
	}

	return nil
}
