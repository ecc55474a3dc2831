package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andrej220/hamagent/pkg/config/configstore"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

var _ configstore.ConfigStore = (*FileStore)(nil)
var _ configstore.Watcher = (*FileStore)(nil)

// settle is how long Watch waits for a burst of events to end
// before calling onChange once.
const settle = 250 * time.Millisecond

type FileStore struct {
	Path string
	// OnWatchError receives watcher errors; nil drops them.
	OnWatchError func(error)
}

func New(path string) *FileStore {
	return &FileStore{Path: path}
}

func WriteSecureFile(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.Write(data)
	return err
}

func (f *FileStore) isJSON() bool {
	ext := strings.ToLower(filepath.Ext(f.Path))
	return ext != ".yaml" && ext != ".yml"
}

// Load decodes the file into out. Files ending in .yaml or .yml are parsed
// as YAML, everything else as JSON.
func (f *FileStore) Load(out any) error {
	if out == nil {
		return fmt.Errorf("Load: output parameter must not be nil")
	}

	bytes, err := os.ReadFile(f.Path)
	if err != nil {
		return fmt.Errorf("Load: failed to read file %s: %w", f.Path, err)
	}

	if len(strings.TrimSpace(string(bytes))) == 0 {
		return fmt.Errorf("Load: config file %s is empty", f.Path)
	}

	if f.isJSON() {
		if err := json.Unmarshal(bytes, out); err != nil {
			return fmt.Errorf("Load: failed to parse JSON in %s: %w", f.Path, err)
		}
		return nil
	}

	if err := yaml.Unmarshal(bytes, out); err != nil {
		return fmt.Errorf("Load: failed to parse YAML in %s: %w", f.Path, err)
	}

	return nil
}

func (f *FileStore) Save(in any) error {
	if in == nil {
		return fmt.Errorf("Save: input parameter must not be nil")
	}

	var (
		bytes []byte
		err   error
	)
	if f.isJSON() {
		bytes, err = json.MarshalIndent(in, "", "  ")
	} else {
		bytes, err = yaml.Marshal(in)
	}
	if err != nil {
		return fmt.Errorf("Save: failed to marshal %s: %w", f.Path, err)
	}

	// Write to temp file first
	tmpPath := f.Path + ".tmp"
	if err := WriteSecureFile(tmpPath, bytes); err != nil {
		return fmt.Errorf("Save: failed to write temp file %s: %w", tmpPath, err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, f.Path); err != nil {
		return fmt.Errorf("Save: failed to replace %s with %s: %w", f.Path, tmpPath, err)
	}

	return nil
}

// Watch calls onChange after the file is written, created or replaced.
// The parent directory is watched so that editors which save through a
// rename are noticed too. Watching stops when ctx is done.
func (f *FileStore) Watch(ctx context.Context, onChange func()) error {
	if onChange == nil {
		return fmt.Errorf("onChange callback cannot be nil")
	}

	abs, err := filepath.Abs(f.Path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", f.Path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch file %s: %w", f.Path, err)
	}

	go func() {
		defer watcher.Close()
		var pending *time.Timer
		defer func() {
			if pending != nil {
				pending.Stop()
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if pending != nil {
					pending.Stop()
				}
				pending = time.AfterFunc(settle, onChange)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if f.OnWatchError != nil {
					f.OnWatchError(fmt.Errorf("watcher error on %s: %w", f.Path, err))
				}
			}
		}
	}()

	return nil
}
