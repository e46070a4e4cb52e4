// Package convert provides functions to convert core capture types to GORM models
package convert

import (
	"encoding/json"

	"github.com/labelshot/labelshot/internal/model"
	"github.com/labelshot/labelshot/pkg/core"
	"gorm.io/datatypes"
)

// CoreToSession converts a core.Session to a GORM CaptureSession.
func CoreToSession(s core.Session) model.CaptureSession {
	return model.CaptureSession{
		Name:         s.Name,
		Scenario:     s.ScenarioPath,
		OutputDir:    s.OutputDir,
		Resolution:   s.Resolution.Name,
		ScreenFormat: s.ScreenFormat.String(),
		RenderHUD:    s.RenderHUD,
		RenderWeapon: s.RenderWeapon,
		StartedAt:    s.StartTime,
	}
}

// CoreToCapture converts a core.CaptureRecord to a GORM Capture with its
// objects attached. Metadata holds the same document as the JSON file.
func CoreToCapture(rec core.CaptureRecord, sessionID uint) model.Capture {
	objects := make([]model.CapturedObject, len(rec.Objects))
	for i, o := range rec.Objects {
		objects[i] = CoreToObject(o)
	}
	return model.Capture{
		SessionID:    sessionID,
		BaseName:     rec.BaseName,
		CapturedAt:   rec.CapturedAt,
		Tic:          rec.Tic,
		RawPath:      rec.RawPath,
		LabeledPath:  rec.LabeledPath,
		MetadataPath: rec.MetadataPath,
		ObjectCount:  len(rec.Objects),
		Metadata:     metadataToJSON(rec.Objects),
		Objects:      objects,
	}
}

// CoreToObject converts a core.ObjectRecord to a GORM CapturedObject.
func CoreToObject(o core.ObjectRecord) model.CapturedObject {
	return model.CapturedObject{
		ObjectID:   o.ObjectID,
		ObjectName: o.ObjectName,
		PosX:       o.PosX,
		PosY:       o.PosY,
		Width:      o.Width,
		Height:     o.Height,
	}
}

func metadataToJSON(objects []core.ObjectRecord) datatypes.JSON {
	if objects == nil {
		objects = []core.ObjectRecord{}
	}
	data, _ := json.Marshal(core.Metadata{Objects: objects})
	return datatypes.JSON(data)
}
