package sqlitestorage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/labelshot/labelshot/internal/database"
	"github.com/labelshot/labelshot/internal/model"
	"github.com/labelshot/labelshot/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCatalogSurvivesClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labelshot.db")

	b := New(Config{Path: path})
	require.NoError(t, b.Init())
	require.NoError(t, b.StartSession(&core.Session{Name: "s", StartTime: time.Now()}))
	require.NoError(t, b.RecordCapture(&core.CaptureRecord{
		BaseName: "2024-05-01_13h00min01sec",
		Objects:  []core.ObjectRecord{{ObjectID: 1, ObjectName: "lamp"}},
	}))
	require.NoError(t, b.EndSession())
	require.NoError(t, b.Close())

	db, err := database.OpenSQLite(path)
	require.NoError(t, err)
	var objects []model.CapturedObject
	require.NoError(t, db.Find(&objects).Error)
	require.Len(t, objects, 1)
	assert.Equal(t, "lamp", objects[0].ObjectName)
}
