package config

import (
	"errors"
	"fmt"
	"net"
)

var (
	ErrCantBindToPort = errors.New("bind: can't bind to host:port")
)

type Bind struct {
	HTTP    string `hcl:"http,optional" json:"http,omitempty"`
	Metrics string `hcl:"metrics,optional" json:"metrics,omitempty"`
}

// Valid actually binds each address and lets it go again, so a config that
// passes validation is one the listeners can use.
func (b *Bind) Valid() error {
	var errs []error

	for _, addr := range []string{b.HTTP, b.Metrics} {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w %q: %w", ErrCantBindToPort, addr, err))
		} else {
			defer ln.Close()
		}
	}

	if len(errs) != 0 {
		return errors.Join(errs...)
	}

	return nil
}
