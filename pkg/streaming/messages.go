package streaming

import (
	"encoding/json"
	"time"

	"github.com/labelshot/labelshot/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartSession = "start_session"
	TypeEndSession   = "end_session"
	TypeCapture      = "capture"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// TypeAck is the only message type the server sends.
const TypeAck = "ack"

// AckMessage is the server's acknowledgement response. Capture acks carry
// the capture's base name in Key.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
	Key  string `json:"key,omitempty"`
}

// StartSessionPayload describes the session captures belong to.
type StartSessionPayload struct {
	Name         string    `json:"name"`
	Scenario     string    `json:"scenario"`
	OutputDir    string    `json:"outputDir"`
	Resolution   string    `json:"resolution"`
	ScreenFormat string    `json:"screenFormat"`
	RenderHUD    bool      `json:"renderHud"`
	RenderWeapon bool      `json:"renderWeapon"`
	StartedAt    time.Time `json:"startedAt"`
}

// CapturePayload carries one artifact set's paths and objects.
type CapturePayload struct {
	BaseName     string              `json:"baseName"`
	CapturedAt   time.Time           `json:"capturedAt"`
	Tic          uint                `json:"tic"`
	RawPath      string              `json:"rawPath"`
	LabeledPath  string              `json:"labeledPath"`
	MetadataPath string              `json:"metadataPath"`
	Objects      []core.ObjectRecord `json:"objects"`
}

// EndSessionPayload closes a session.
type EndSessionPayload struct {
	Captures int `json:"captures"`
}

// NewStartSessionPayload copies a session into its wire form.
func NewStartSessionPayload(s *core.Session) StartSessionPayload {
	return StartSessionPayload{
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

// NewCapturePayload copies a capture record into its wire form.
func NewCapturePayload(rec *core.CaptureRecord) CapturePayload {
	objects := rec.Objects
	if objects == nil {
		objects = []core.ObjectRecord{}
	}
	return CapturePayload{
		BaseName:     rec.BaseName,
		CapturedAt:   rec.CapturedAt,
		Tic:          rec.Tic,
		RawPath:      rec.RawPath,
		LabeledPath:  rec.LabeledPath,
		MetadataPath: rec.MetadataPath,
		Objects:      objects,
	}
}
