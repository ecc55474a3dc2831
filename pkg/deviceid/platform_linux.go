package deviceid

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// machineIDPaths are tried in order; dbus keeps a copy on older systems.
var machineIDPaths = []string{"/etc/machine-id", "/var/lib/dbus/machine-id"}

func platformID(ctx context.Context) (string, error) {
	return readFirst(machineIDPaths)
}

func readFirst(paths []string) (string, error) {
	var errs []error
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		id, err := normalize(string(raw), p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return id, nil
	}
	return "", fmt.Errorf("machine-id: %w", errors.Join(append([]error{ErrNotFound}, errs...)...))
}
