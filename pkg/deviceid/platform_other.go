//go:build !linux && !darwin && !windows

package deviceid

import (
	"context"
	"fmt"
	"runtime"
)

func platformID(ctx context.Context) (string, error) {
	return "", fmt.Errorf("no platform store on %s: %w", runtime.GOOS, ErrNotFound)
}
