package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SeshatHQ/seshat/lib/store"
)

func init() {
	store.Register("memory", Factory{})
}

type Factory struct{}

// Valid accepts an empty parameters block; the memory backend has no knobs.
func (Factory) Valid(data json.RawMessage) error {
	if len(data) == 0 {
		return nil
	}

	var params struct{}
	if err := json.Unmarshal(data, &params); err != nil {
		return fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	return nil
}

func (f Factory) Build(ctx context.Context, data json.RawMessage) (store.Interface, error) {
	if err := f.Valid(data); err != nil {
		return nil, err
	}

	return New(ctx), nil
}
