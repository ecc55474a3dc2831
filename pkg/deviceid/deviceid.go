// Package deviceid resolves the stable identifier the agent stamps on
// every result it reports.
package deviceid

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("device id not found")

type Provider interface {
	DeviceID(ctx context.Context) (string, error)
}

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(ctx context.Context) (string, error)

func (f ProviderFunc) DeviceID(ctx context.Context) (string, error) { return f(ctx) }

// Static always returns id. An empty id is reported as not found.
func Static(id string) Provider {
	return ProviderFunc(func(context.Context) (string, error) {
		return normalize(id, "static")
	})
}

// Chain tries providers in order and returns the first identifier found.
func Chain(providers ...Provider) Provider {
	return ProviderFunc(func(ctx context.Context) (string, error) {
		errs := []error{ErrNotFound}
		for _, p := range providers {
			id, err := p.DeviceID(ctx)
			if err == nil {
				return id, nil
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			errs = append(errs, err)
		}
		return "", errors.Join(errs...)
	})
}

// Platform reads the identifier from the host's own store.
func Platform() Provider {
	return ProviderFunc(platformID)
}

func normalize(id, source string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%s: %w", source, ErrNotFound)
	}
	return id, nil
}
