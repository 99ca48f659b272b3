package cmd

import (
	"context"
	"fmt"

	"github.com/roadlog/roadlog/pkg/core"
	"github.com/roadlog/roadlog/pkg/dlogger"
	"github.com/roadlog/roadlog/pkg/storage"
	"github.com/roadlog/roadlog/pkg/storage/gcs"
	"github.com/roadlog/roadlog/pkg/storage/localfs"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config describes the CLI configuration.
type Config struct {
	// bug in viper? Need to keep names of fields the same as the serialized names..
	Storage    string `json:"storage" yaml:"storage"`       // Backend: local or gcs
	Path       string `json:"path" yaml:"path"`             // Root directory of the local backend
	Bucket     string `json:"bucket" yaml:"bucket"`         // Bucket of the gcs backend
	Credential string `json:"credential" yaml:"credential"` // Credentials to use for GCS
	AdminToken string `json:"admintoken" yaml:"admintoken"` // Shared token for the admin endpoints
	Port       int    `json:"port" yaml:"port"`             // HTTP listen port
	LogLevel   string `json:"loglevel" yaml:"loglevel"`     // Log level: info, debug, warn, error, none
}

func newConfig() (*Config, error) {
	var config Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) logger() *zap.Logger {
	return dlogger.MustGetLogger(c.LogLevel)
}

// makeStore builds the configured storage backend. Baseline, change log and
// user records share one store: their key prefixes keep them apart.
func (c *Config) makeStore(ctx context.Context) (storage.Store, error) {
	switch c.Storage {
	case "local", "":
		return localfs.New(afero.NewBasePathFs(afero.NewOsFs(), c.Path)), nil
	case "gcs":
		if c.Bucket == "" {
			return nil, fmt.Errorf("gcs backend requires a bucket")
		}
		return gcs.New(ctx, c.Bucket, c.Credential)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.Storage)
	}
}

func (c *Config) makeLedger(ctx context.Context) (*core.Ledger, error) {
	store, err := c.makeStore(ctx)
	if err != nil {
		return nil, err
	}
	return core.New(core.Stores{
		Baseline: store,
		Log:      store,
		Users:    store,
	}, core.Logger(c.logger())), nil
}
