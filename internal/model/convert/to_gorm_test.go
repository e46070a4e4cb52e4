package convert

import (
	"testing"
	"time"

	"github.com/labelshot/labelshot/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestCoreToSession(t *testing.T) {
	start := time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)
	s := CoreToSession(core.Session{
		Name:         "2024-05-01_13h00min00sec",
		ScenarioPath: "detection_test_environment.yaml",
		OutputDir:    "screenshots/",
		Resolution:   core.Resolution{Name: "RES_640X480", Width: 640, Height: 480},
		ScreenFormat: core.FormatRGB24,
		RenderHUD:    true,
		StartTime:    start,
	})

	assert.Equal(t, "2024-05-01_13h00min00sec", s.Name)
	assert.Equal(t, "detection_test_environment.yaml", s.Scenario)
	assert.Equal(t, "screenshots/", s.OutputDir)
	assert.Equal(t, "RES_640X480", s.Resolution)
	assert.Equal(t, "RGB24", s.ScreenFormat)
	assert.True(t, s.RenderHUD)
	assert.False(t, s.RenderWeapon)
	assert.Equal(t, start, s.StartedAt)
	assert.False(t, s.EndedAt.Valid)
}

func TestCoreToCapture(t *testing.T) {
	rec := core.CaptureRecord{
		BaseName:     "2024-05-01_13h00min01sec",
		CapturedAt:   time.Date(2024, 5, 1, 13, 0, 1, 0, time.UTC),
		Tic:          42,
		RawPath:      "screenshots/2024-05-01_13h00min01sec.png",
		LabeledPath:  "screenshots/2024-05-01_13h00min01sec_labeled.png",
		MetadataPath: "screenshots/2024-05-01_13h00min01sec.json",
		Objects: []core.ObjectRecord{
			{ObjectID: 3, ObjectName: "torch", PosX: 72, PosY: 56, Width: 16, Height: 24},
		},
	}

	c := CoreToCapture(rec, 7)

	assert.Equal(t, uint(7), c.SessionID)
	assert.Equal(t, rec.BaseName, c.BaseName)
	assert.Equal(t, uint(42), c.Tic)
	assert.Equal(t, rec.LabeledPath, c.LabeledPath)
	assert.Equal(t, 1, c.ObjectCount)
	assert.JSONEq(t,
		`{"objects":[{"obj_id":3,"obj_name":"torch","pos_x":72,"pos_y":56,"width":16,"height":24}]}`,
		string(c.Metadata))
	if assert.Len(t, c.Objects, 1) {
		assert.Equal(t, "torch", c.Objects[0].ObjectName)
		assert.Equal(t, 72, c.Objects[0].PosX)
		assert.Equal(t, 24, c.Objects[0].Height)
	}
}

func TestCoreToCapture_NoObjects(t *testing.T) {
	c := CoreToCapture(core.CaptureRecord{BaseName: "x"}, 1)
	assert.Equal(t, 0, c.ObjectCount)
	assert.Empty(t, c.Objects)
	assert.JSONEq(t, `{"objects":[]}`, string(c.Metadata))
}
