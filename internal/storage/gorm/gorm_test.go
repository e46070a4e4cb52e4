package gormstorage

import (
	"testing"
	"time"

	"github.com/labelshot/labelshot/internal/database"
	"github.com/labelshot/labelshot/internal/model"
	"github.com/labelshot/labelshot/internal/storage"
	"github.com/labelshot/labelshot/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func newTestBackend(t *testing.T, interval time.Duration) (*Backend, *gorm.DB) {
	t.Helper()
	db, err := database.OpenSQLite("")
	require.NoError(t, err)

	b := New(Dependencies{DB: db, FlushInterval: interval})
	require.NoError(t, b.Init())
	return b, db
}

func testSession() *core.Session {
	return &core.Session{
		Name:         "2024-05-01_13h00min00sec",
		ScenarioPath: "detection_test_environment.yaml",
		OutputDir:    "screenshots/",
		Resolution:   core.Resolution{Name: "RES_320X240", Width: 320, Height: 240},
		ScreenFormat: core.FormatRGB24,
		StartTime:    time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC),
	}
}

func testRecord(base string, objects ...core.ObjectRecord) *core.CaptureRecord {
	return &core.CaptureRecord{
		BaseName:   base,
		CapturedAt: time.Date(2024, 5, 1, 13, 0, 1, 0, time.UTC),
		RawPath:    "screenshots/" + base + ".png",
		Objects:    objects,
	}
}

func TestInit_NoDatabase(t *testing.T) {
	b := New(Dependencies{})
	err := b.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database configured")
	assert.NoError(t, b.Close())
}

func TestSessionAndCaptures(t *testing.T) {
	b, db := newTestBackend(t, time.Hour)

	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.RecordCapture(testRecord("2024-05-01_13h00min01sec",
		core.ObjectRecord{ObjectID: 3, ObjectName: "torch", PosX: 72, PosY: 56, Width: 16, Height: 24},
		core.ObjectRecord{ObjectID: 5, ObjectName: "barrel", PosX: 1, PosY: 2, Width: 3, Height: 4},
	)))
	require.NoError(t, b.RecordCapture(testRecord("2024-05-01_13h00min02sec")))
	assert.Equal(t, 2, b.Pending())

	require.NoError(t, b.EndSession())
	assert.Equal(t, 0, b.Pending())

	var session model.CaptureSession
	require.NoError(t, db.Preload("Captures.Objects").First(&session).Error)
	assert.Equal(t, "RES_320X240", session.Resolution)
	assert.Equal(t, "RGB24", session.ScreenFormat)
	assert.Equal(t, 2, session.CaptureCount)
	assert.True(t, session.EndedAt.Valid)
	require.Len(t, session.Captures, 2)

	first := session.Captures[0]
	assert.Equal(t, "2024-05-01_13h00min01sec", first.BaseName)
	assert.Equal(t, 2, first.ObjectCount)
	require.Len(t, first.Objects, 2)
	assert.Equal(t, "torch", first.Objects[0].ObjectName)
	assert.JSONEq(t,
		`{"objects":[{"obj_id":3,"obj_name":"torch","pos_x":72,"pos_y":56,"width":16,"height":24},{"obj_id":5,"obj_name":"barrel","pos_x":1,"pos_y":2,"width":3,"height":4}]}`,
		string(first.Metadata))
	assert.Empty(t, session.Captures[1].Objects)

	require.NoError(t, b.Close())
}

func TestWriterFlushesInBackground(t *testing.T) {
	b, db := newTestBackend(t, 10*time.Millisecond)
	t.Cleanup(func() { _ = b.Close() })

	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.RecordCapture(testRecord("2024-05-01_13h00min01sec")))

	assert.Eventually(t, func() bool {
		var n int64
		db.Model(&model.Capture{}).Count(&n)
		return n == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestCloseFlushesRemaining(t *testing.T) {
	b, db := newTestBackend(t, time.Hour)

	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.RecordCapture(testRecord("a")))
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	var n int64
	require.NoError(t, db.Model(&model.Capture{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestSessionsAreSeparate(t *testing.T) {
	b, db := newTestBackend(t, time.Hour)
	t.Cleanup(func() { _ = b.Close() })

	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.RecordCapture(testRecord("a")))
	require.NoError(t, b.EndSession())

	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.RecordCapture(testRecord("b")))
	require.NoError(t, b.RecordCapture(testRecord("c")))
	require.NoError(t, b.EndSession())

	var sessions []model.CaptureSession
	require.NoError(t, db.Order("id").Find(&sessions).Error)
	require.Len(t, sessions, 2)
	assert.Equal(t, 1, sessions[0].CaptureCount)
	assert.Equal(t, 2, sessions[1].CaptureCount)

	var second []model.Capture
	require.NoError(t, db.Where("session_id = ?", sessions[1].ID).Find(&second).Error)
	assert.Len(t, second, 2)
}

func TestStartSession_NotInitialized(t *testing.T) {
	b := New(Dependencies{})
	err := b.StartSession(testSession())
	require.Error(t, err)
}
