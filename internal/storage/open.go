package storage

import (
	"context"
	"fmt"
	"os"
)

// Driver names accepted by Open.
const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Drivers lists every supported driver, for config validation.
var Drivers = []any{DriverFile, DriverMemory, DriverSQLite, DriverRedis, DriverPostgres}

// Options selects and configures a backend.
type Options struct {
	Driver    string
	Namespace string // collection name for file and redis
	Dir       string // file
	DSN       string // sqlite path or postgres URL
	Redis     RedisOptions
}

// Open builds the Provider named by opts.Driver.
func Open(ctx context.Context, opts Options) (Provider, error) {
	switch opts.Driver {
	case DriverFile, "":
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create data dir: %w", err)
		}
		return NewFile(opts.Dir, opts.Namespace)
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return OpenSQLite(opts.DSN)
	case DriverRedis:
		ro := opts.Redis
		if ro.Key == "" {
			ro.Key = opts.Namespace
		}
		return OpenRedis(ctx, ro)
	case DriverPostgres:
		return OpenPostgres(ctx, opts.DSN)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", opts.Driver)
	}
}
