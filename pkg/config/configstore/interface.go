package configstore

import (
	"context"
	"errors"
)

var ErrWatchUnsupported = errors.New("store does not support watching")

type ConfigStore interface {
	Load(out any) error
	Save(data any) error
}

// Watcher is implemented by stores that can notify about changes.
type Watcher interface {
	Watch(ctx context.Context, onChange func()) error
}
