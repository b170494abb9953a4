// Package store selects and constructs a state.Store backend from
// configuration. The server and the admin commands both go through New so
// they always agree on how a driver string maps to a backend.
package store

import (
	"context"
	"fmt"

	"github.com/marmos91/cipherdrop/pkg/state"
	"github.com/marmos91/cipherdrop/pkg/state/store/badger"
	"github.com/marmos91/cipherdrop/pkg/state/store/memory"
	"github.com/marmos91/cipherdrop/pkg/state/store/postgres"
	"github.com/marmos91/cipherdrop/pkg/state/store/sqlite"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverBadger   = "badger"
	DriverMemory   = "memory"
)

// Config selects a backend and carries its location.
type Config struct {
	// Driver is one of sqlite, postgres, badger or memory.
	Driver string `mapstructure:"driver" yaml:"driver" json:"driver" validate:"required,oneof=sqlite postgres badger memory"`

	// Path locates file-backed stores: the database file for sqlite, the
	// database directory for badger. Ignored by other drivers.
	Path string `mapstructure:"path" yaml:"path" json:"path,omitempty"`

	// URL is the PostgreSQL connection string. Ignored by other drivers.
	URL string `mapstructure:"url" yaml:"url" json:"url,omitempty"`
}

// New constructs the configured backend.
func New(ctx context.Context, cfg Config) (state.Store, error) {
	switch cfg.Driver {
	case DriverSQLite:
		return sqlite.New(cfg.Path)
	case DriverPostgres:
		return postgres.New(ctx, cfg.URL)
	case DriverBadger:
		return badger.New(cfg.Path)
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown state store driver: %q", cfg.Driver)
	}
}
