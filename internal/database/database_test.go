package database

import (
	"path/filepath"
	"testing"

	"github.com/labelshot/labelshot/internal/model"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLite_InMemorySetup(t *testing.T) {
	db, err := OpenSQLite("")
	require.NoError(t, err)

	require.NoError(t, Setup(db))
	for _, m := range model.DatabaseModels {
		assert.True(t, db.Migrator().HasTable(m))
	}

	var info model.LabelshotInfo
	require.NoError(t, db.First(&info).Error)
	assert.Equal(t, "labelshot", info.Tool)
	assert.Equal(t, SchemaVersion, info.SchemaVersion)

	// a second setup keeps the single info row
	require.NoError(t, Setup(db))
	var count int64
	require.NoError(t, db.Model(&model.LabelshotInfo{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestOpenSQLite_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	db, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, Setup(db))
	assert.FileExists(t, path)
}

func TestPostgresDSN(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "db.local")
	viper.Set("db.port", "5433")
	viper.Set("db.username", "shot")
	viper.Set("db.password", "secret")
	viper.Set("db.database", "labelshot")

	assert.Equal(t, "host=db.local port=5433 user=shot password=secret dbname=labelshot sslmode=disable", PostgresDSN())
}

func TestManager_FallsBackToSQLite(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "127.0.0.1")
	viper.Set("db.port", "1")
	viper.Set("db.username", "postgres")
	viper.Set("db.password", "postgres")
	viper.Set("db.database", "labelshot")

	path := filepath.Join(t.TempDir(), "fallback.db")
	m := NewManager(zerolog.Nop(), path)
	require.NoError(t, m.Connect())
	t.Cleanup(func() { _ = m.Close() })

	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	assert.Equal(t, "sqlite", m.DB.Dialector.Name())
	require.NoError(t, m.Setup())
}
