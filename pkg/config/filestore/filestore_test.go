package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"state.json", "state.yaml"} {
		t.Run(name, func(t *testing.T) {
			store := New(filepath.Join(t.TempDir(), name))
			require.NoError(t, store.Save(doc{Name: "ham", Count: 3}))

			info, err := os.Stat(store.Path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

			var got doc
			require.NoError(t, store.Load(&got))
			assert.Equal(t, doc{Name: "ham", Count: 3}, got)
		})
	}
}

func TestLoadNilOutput(t *testing.T) {
	assert.Error(t, New("whatever.json").Load(nil))
	assert.Error(t, New("whatever.json").Save(nil))
}

func TestWatchFiresOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 4)
	store := New(path)
	require.NoError(t, store.Watch(ctx, func() { changed <- struct{}{} }))

	// unrelated files in the same directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.json"), []byte(`{}`), 0600))
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"x"}`), 0600))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
}

func TestWatchRequiresCallback(t *testing.T) {
	assert.Error(t, New("config.json").Watch(context.Background(), nil))
}
