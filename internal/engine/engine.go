// Package engine defines the contract between a capture session and the
// environment that renders frames and reports input.
package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/labelshot/labelshot/internal/imaging"
	"github.com/labelshot/labelshot/pkg/core"
)

// ErrNotInitialized is returned by calls made before Init succeeded.
var ErrNotInitialized = errors.New("engine not initialized")

// Settings configures an environment before Init.
type Settings struct {
	ScenarioPath        string
	RenderHUD           bool
	RenderWeapon        bool
	Mode                core.Mode
	LabelsBufferEnabled bool
	ScreenFormat        core.ScreenFormat
	Resolution          core.Resolution
	WindowVisible       bool
	RenderAllFrames     bool
	GameArgs            string // "+name value" pairs
	AvailableButtons    []core.Button
	Logger              *slog.Logger
}

// State is one rendered frame.
type State struct {
	Tic    uint
	Screen *imaging.Buffer
	// Labels lists the objects that own at least one pixel of LabelsBuffer.
	Labels []core.Label
	// LabelsBuffer holds one value per screen pixel, 0 where no object was drawn.
	// Nil when label generation is disabled.
	LabelsBuffer []uint8
}

// Game is the environment a session drives.
type Game interface {
	Init(settings Settings) error
	SendGameCommand(cmd string) error
	NewEpisode() error
	IsEpisodeFinished() bool
	// AdvanceAction blocks until the environment has produced its next tic.
	AdvanceAction(ctx context.Context) error
	GetButton(b core.Button) float64
	GetState() *State
	Close() error
}
