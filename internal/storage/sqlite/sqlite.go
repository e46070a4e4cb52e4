// Package sqlitestorage implements the storage.Backend interface on a
// SQLite database file through the GORM backend.
package sqlitestorage

import (
	"log/slog"

	"github.com/labelshot/labelshot/internal/database"
	gormstorage "github.com/labelshot/labelshot/internal/storage/gorm"
	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	// Path of the database file; empty keeps the catalog in memory.
	Path   string
	Logger *slog.Logger
}

// New creates a new SQLite storage backend.
func New(cfg Config) *gormstorage.Backend {
	return gormstorage.New(gormstorage.Dependencies{
		Open: func() (*gorm.DB, error) {
			return database.OpenSQLite(cfg.Path)
		},
		Logger: cfg.Logger,
	})
}
