// Package session runs one interactive capture session: it starts the
// environment, watches the USE button and writes a capture on every press.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/labelshot/labelshot/internal/capture"
	"github.com/labelshot/labelshot/internal/engine"
	"github.com/labelshot/labelshot/pkg/core"
)

// GameArgs are the console variables every session starts with.
const GameArgs = "+freelook 1 +movebob 0 +sv_cheats 1"

// GodModeCommand is sent once after Init.
const GodModeCommand = "iddqd"

const (
	DefaultCooldown   = 28 * time.Millisecond
	DefaultCloseDelay = 2 * time.Second
)

// Sink receives every successful capture. Sink failures are logged and do
// not stop the session.
type Sink interface {
	RecordCapture(rec *core.CaptureRecord) error
}

// Options tunes a Driver.
type Options struct {
	Cooldown   time.Duration
	CloseDelay time.Duration
	Logger     *slog.Logger
	Sinks      []Sink
	// Sleep pauses for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration)
}

// Driver owns the control loop of one session.
type Driver struct {
	game    engine.Game
	session *core.Session
	writer  *capture.Writer
	opts    Options
	log     *slog.Logger

	captures atomic.Int64
}

// NewDriver returns a driver that plays session on game and saves through writer.
func NewDriver(game engine.Game, session *core.Session, writer *capture.Writer, opts Options) *Driver {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}
	return &Driver{
		game:    game,
		session: session,
		writer:  writer,
		opts:    opts,
		log:     opts.Logger,
	}
}

// NewSettings builds the engine settings for a session.
func NewSettings(s *core.Session, logger *slog.Logger) engine.Settings {
	return engine.Settings{
		ScenarioPath:        s.ScenarioPath,
		RenderHUD:           s.RenderHUD,
		RenderWeapon:        s.RenderWeapon,
		Mode:                core.ModeAsyncSpectator,
		LabelsBufferEnabled: true,
		ScreenFormat:        s.ScreenFormat,
		Resolution:          s.Resolution,
		WindowVisible:       true,
		RenderAllFrames:     true,
		GameArgs:            GameArgs,
		AvailableButtons:    append([]core.Button(nil), core.CaptureButtons...),
		Logger:              logger,
	}
}

// Captures returns the number of captures written so far.
func (d *Driver) Captures() int64 {
	return d.captures.Load()
}

// Run plays one episode. Init and NewEpisode errors are returned as is, a
// failed capture ends the session with an error, and cancelling ctx ends it
// like the episode finishing.
func (d *Driver) Run(ctx context.Context) error {
	d.log.Info("Starting capture session",
		"scenario", d.session.ScenarioPath,
		"output", d.session.OutputDir,
		"resolution", d.session.Resolution.Name,
		"format", d.session.ScreenFormat.String(),
		"hud", d.session.RenderHUD,
		"weapon", d.session.RenderWeapon)

	if err := d.game.Init(NewSettings(d.session, d.log)); err != nil {
		return err
	}
	if err := d.game.SendGameCommand(GodModeCommand); err != nil {
		d.log.Warn("God mode command failed", "error", err)
	}
	if err := d.game.NewEpisode(); err != nil {
		d.closeGame()
		return err
	}

	if err := d.loop(ctx); err != nil {
		d.closeGame()
		return err
	}

	d.log.Info("Episode finished", "captures", d.Captures())
	d.opts.Sleep(ctx, d.opts.CloseDelay)
	d.closeGame()
	return nil
}

func (d *Driver) loop(ctx context.Context) error {
	var trigger capture.Trigger
	for !d.game.IsEpisodeFinished() {
		if err := d.game.AdvanceAction(ctx); err != nil {
			if ctx.Err() != nil {
				d.log.Info("Session interrupted")
				return nil
			}
			return fmt.Errorf("advance: %w", err)
		}

		pressed := d.game.GetButton(core.ButtonUse) == core.ButtonPressed
		if !trigger.Observe(pressed) {
			continue
		}

		rec, err := d.writer.Capture(ctx, d.game.GetState())
		if err != nil {
			return fmt.Errorf("capture: %w", err)
		}
		d.captures.Add(1)
		for _, sink := range d.opts.Sinks {
			if err := sink.RecordCapture(rec); err != nil {
				d.log.Error("Failed to record capture", "capture", rec.BaseName, "error", err)
			}
		}
		d.opts.Sleep(ctx, d.opts.Cooldown)
	}
	return nil
}

func (d *Driver) closeGame() {
	if err := d.game.Close(); err != nil {
		d.log.Error("Failed to close engine", "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
