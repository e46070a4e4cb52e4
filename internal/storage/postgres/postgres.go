// Package postgres implements the storage.Backend interface on PostgreSQL
// through the GORM backend, falling back to a local SQLite file when the
// server cannot be reached.
package postgres

import (
	"log/slog"

	"github.com/labelshot/labelshot/internal/database"
	gormstorage "github.com/labelshot/labelshot/internal/storage/gorm"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Config holds configuration for the Postgres storage backend.
type Config struct {
	// FallbackPath is the SQLite file used when Postgres is unreachable.
	FallbackPath string
	Logger       *slog.Logger
	DBLogger     zerolog.Logger
}

// New creates a new Postgres storage backend. Connection settings come
// from the db.* config keys.
func New(cfg Config) *gormstorage.Backend {
	return gormstorage.New(gormstorage.Dependencies{
		Open: func() (*gorm.DB, error) {
			m := database.NewManager(cfg.DBLogger, cfg.FallbackPath)
			if err := m.Connect(); err != nil {
				return nil, err
			}
			return m.DB, nil
		},
		Logger: cfg.Logger,
	})
}
