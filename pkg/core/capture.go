// pkg/core/capture.go
package core

import "time"

// Session is a capture session, resolved once from the command line and config.
type Session struct {
	Name         string
	ScenarioPath string
	OutputDir    string // always ends in "/"
	Resolution   Resolution
	ScreenFormat ScreenFormat
	RenderWeapon bool
	RenderHUD    bool
	StartTime    time.Time
}

// Label is one visible object in a frame.
type Label struct {
	ObjectID   int
	ObjectName string
	Value      uint8 // value the object carries in the labels buffer
	X          int
	Y          int
	Width      int
	Height     int
}

// ObjectRecord is the persisted form of a Label.
type ObjectRecord struct {
	ObjectID   int    `json:"obj_id"`
	ObjectName string `json:"obj_name"`
	PosX       int    `json:"pos_x"`
	PosY       int    `json:"pos_y"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// NewObjectRecord copies a label's identity and bounding box.
func NewObjectRecord(l Label) ObjectRecord {
	return ObjectRecord{
		ObjectID:   l.ObjectID,
		ObjectName: l.ObjectName,
		PosX:       l.X,
		PosY:       l.Y,
		Width:      l.Width,
		Height:     l.Height,
	}
}

// Metadata is the content of a capture's JSON file.
type Metadata struct {
	Objects []ObjectRecord `json:"objects"`
}

// CaptureRecord describes one persisted artifact set.
type CaptureRecord struct {
	BaseName     string
	CapturedAt   time.Time
	Tic          uint
	RawPath      string
	LabeledPath  string
	MetadataPath string
	Objects      []ObjectRecord
}
