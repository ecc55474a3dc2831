// pkg/config/config.go
package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/andrej220/hamagent/pkg/config/configstore"
	"github.com/andrej220/hamagent/pkg/config/filestore"
	"github.com/andrej220/hamagent/pkg/config/mongostore"
)

type StoreType int

const (
	FileStore StoreType = iota
	MongoStore
)

var (
	ErrInvalidStoreType = errors.New("invalid store type")
)

// Config interface that combines all store capabilities
type Config interface {
	configstore.ConfigStore
	configstore.Watcher
}

type FileConfig struct {
	Path string `yaml:"path" json:"path"`
}

type MongoConfig struct {
	URI      string `yaml:"uri" json:"uri"`
	DBName   string `yaml:"dbName" json:"dbName"`
	CollName string `yaml:"collName" json:"collName"`
	ID       string `yaml:"id" json:"id"` // Document ID
}

func ParseStoreType(s string) (StoreType, error) {
	switch s {
	case "", "file":
		return FileStore, nil
	case "mongo":
		return MongoStore, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidStoreType, s)
	}
}

func NewStore(ctx context.Context, storeType StoreType, cfg any) (Config, error) {
	switch storeType {
	case FileStore:
		fileCfg, ok := cfg.(*FileConfig)
		if !ok {
			return nil, fmt.Errorf("invalid config type for file store, expected *FileConfig")
		}
		return filestore.New(fileCfg.Path), nil
	case MongoStore:
		mongoCfg, ok := cfg.(*MongoConfig)
		if !ok {
			return nil, fmt.Errorf("invalid config type for mongo store, expected *MongoConfig")
		}
		return mongostore.New(ctx, mongoCfg.URI, mongoCfg.DBName, mongoCfg.CollName, mongoCfg.ID)
	default:
		return nil, ErrInvalidStoreType
	}
}

// Load reads the agent config from store and validates it.
func Load(store configstore.ConfigStore) (*AgentConfig, error) {
	cfg := NewAgentConfig()
	if err := store.Load(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
