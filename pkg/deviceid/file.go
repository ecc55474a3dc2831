package deviceid

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/andrej220/hamagent/internal/persistence"
	"github.com/google/uuid"
)

// State is the on-disk form of a generated identifier.
type State struct {
	DeviceID  string    `json:"device_id"`
	CreatedAt time.Time `json:"created_at"`
}

// File returns the identifier stored at path, generating and persisting a
// random UUID the first time.
func File(path string) Provider {
	return ProviderFunc(func(ctx context.Context) (string, error) {
		var st State
		err := persistence.ReadJSON(path, &st)
		switch {
		case err == nil:
			if id, nerr := normalize(st.DeviceID, path); nerr == nil {
				return id, nil
			}
		case !errors.Is(err, fs.ErrNotExist):
			return "", fmt.Errorf("device id file: %w", err)
		}

		st = State{DeviceID: uuid.NewString(), CreatedAt: time.Now().UTC()}
		if err := persistence.WriteJSON(st, path); err != nil {
			return "", fmt.Errorf("device id file: %w", err)
		}
		return st.DeviceID, nil
	})
}
