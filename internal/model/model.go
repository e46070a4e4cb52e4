package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&LabelshotInfo{},
	&CaptureSession{},
	&Capture{},
	&CapturedObject{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// LabelshotInfo records which tool version created the catalog.
type LabelshotInfo struct {
	gorm.Model
	Tool          string `json:"tool" gorm:"size:64"`
	SchemaVersion int    `json:"schemaVersion"`
}

func (*LabelshotInfo) TableName() string {
	return "labelshot_infos"
}

////////////////////////
// CAPTURE MODELS
////////////////////////

// CaptureSession is one run of the tool.
type CaptureSession struct {
	ID           uint         `json:"id" gorm:"primarykey;autoIncrement;"`
	CreatedAt    time.Time    `json:"createdAt"`
	Name         string       `json:"name" gorm:"size:128;index"`
	Scenario     string       `json:"scenario" gorm:"size:255"`
	OutputDir    string       `json:"outputDir" gorm:"size:255"`
	Resolution   string       `json:"resolution" gorm:"size:32"`
	ScreenFormat string       `json:"screenFormat" gorm:"size:16"`
	RenderHUD    bool         `json:"renderHud"`
	RenderWeapon bool         `json:"renderWeapon"`
	StartedAt    time.Time    `json:"startedAt"`
	EndedAt      sql.NullTime `json:"endedAt"`
	CaptureCount int          `json:"captureCount"`
	Captures     []Capture    `json:"captures" gorm:"foreignKey:SessionID"`
}

func (*CaptureSession) TableName() string {
	return "capture_sessions"
}

// Capture is one persisted artifact set.
type Capture struct {
	ID           uint             `json:"id" gorm:"primarykey;autoIncrement;"`
	CreatedAt    time.Time        `json:"createdAt"`
	SessionID    uint             `json:"sessionId" gorm:"index"`
	BaseName     string           `json:"baseName" gorm:"size:64;index"`
	CapturedAt   time.Time        `json:"capturedAt"`
	Tic          uint             `json:"tic"`
	RawPath      string           `json:"rawPath" gorm:"size:255"`
	LabeledPath  string           `json:"labeledPath" gorm:"size:255"`
	MetadataPath string           `json:"metadataPath" gorm:"size:255"`
	ObjectCount  int              `json:"objectCount"`
	Metadata     datatypes.JSON   `json:"metadata"`
	Objects      []CapturedObject `json:"objects" gorm:"foreignKey:CaptureID"`
}

func (*Capture) TableName() string {
	return "captures"
}

// CapturedObject is one labeled object of a capture.
type CapturedObject struct {
	ID         uint   `json:"id" gorm:"primarykey;autoIncrement;"`
	CaptureID  uint   `json:"captureId" gorm:"index"`
	ObjectID   int    `json:"objId" gorm:"index"`
	ObjectName string `json:"objName" gorm:"size:64"`
	PosX       int    `json:"posX"`
	PosY       int    `json:"posY"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

func (*CapturedObject) TableName() string {
	return "captured_objects"
}
