// Package raycast is a grid-based first-person environment rendered on the
// CPU. It tracks one player, draws walls and billboarded objects, and reports
// a per-pixel object labels buffer for every frame.
package raycast

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/labelshot/labelshot/internal/engine"
	"github.com/labelshot/labelshot/internal/scenario"
	"github.com/labelshot/labelshot/pkg/core"
)

var (
	ErrCheatsDisabled = errors.New("cheats are disabled")
	ErrUnknownCommand = errors.New("unknown command")
)

const (
	moveSpeed    = 0.08 // cells per tic
	strafeSpeed  = 0.06
	turnSpeed    = 3.0 // degrees per tic
	deltaStrafe  = 0.01
	playerRadius = 0.2
	maxPitch     = 30.0
	startHealth  = 100.0
	hazardPeriod = 32 // tics between hazard damage
)

// Simulation is a headless engine.Game. AdvanceAction steps one tic
// immediately; window.Game paces it in real time instead.
type Simulation struct {
	settings engine.Settings
	log      *slog.Logger
	scn      *scenario.Scenario
	cvars    map[string]float64

	available map[core.Button]bool
	buttons   map[core.Button]float64

	initialized bool
	closed      bool
	running     bool
	finished    bool

	tic    uint
	x, y   float64
	angle  float64 // degrees
	pitch  float64 // degrees, positive looks up
	health float64
	god    bool
	moving bool

	frame  *image.RGBA
	labels []uint8
	zbuf   []float64
	state  *engine.State
}

// New returns an uninitialized simulation.
func New() *Simulation {
	return &Simulation{}
}

// Init loads the scenario and applies the game args.
func (s *Simulation) Init(settings engine.Settings) error {
	if s.initialized {
		return errors.New("engine already initialized")
	}
	if settings.Resolution.Width <= 0 || settings.Resolution.Height <= 0 {
		return fmt.Errorf("invalid resolution %q", settings.Resolution.Name)
	}
	cvars, err := parseGameArgs(settings.GameArgs)
	if err != nil {
		return err
	}
	scn, err := scenario.Load(settings.ScenarioPath)
	if err != nil {
		return err
	}

	s.settings = settings
	s.log = settings.Logger
	if s.log == nil {
		s.log = slog.Default()
	}
	s.scn = scn
	s.cvars = cvars
	s.available = make(map[core.Button]bool, len(settings.AvailableButtons))
	for _, b := range settings.AvailableButtons {
		s.available[b] = true
	}
	s.buttons = make(map[core.Button]float64)

	w, h := settings.Resolution.Width, settings.Resolution.Height
	s.frame = image.NewRGBA(image.Rect(0, 0, w, h))
	s.labels = make([]uint8, w*h)
	s.zbuf = make([]float64, w)
	s.initialized = true

	s.log.Info("Engine initialized",
		"scenario", scn.Name,
		"resolution", settings.Resolution.Name,
		"format", settings.ScreenFormat.String(),
		"mode", settings.Mode.String(),
		"objects", len(scn.Objects))
	return nil
}

// parseGameArgs reads "+name value" pairs into a cvar table.
func parseGameArgs(args string) (map[string]float64, error) {
	cvars := map[string]float64{
		"freelook":  0,
		"movebob":   0.25,
		"sv_cheats": 0,
	}
	fields := strings.Fields(args)
	for i := 0; i < len(fields); i++ {
		name := fields[i]
		if !strings.HasPrefix(name, "+") || len(name) == 1 {
			return nil, fmt.Errorf("invalid game arg %q", name)
		}
		if i+1 >= len(fields) {
			return nil, fmt.Errorf("game arg %s is missing a value", name)
		}
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("game arg %s: %w", name, err)
		}
		cvars[strings.ToLower(name[1:])] = v
		i++
	}
	return cvars, nil
}

// cvar returns the value of a console variable, 0 when unset.
func (s *Simulation) cvar(name string) float64 {
	return s.cvars[strings.ToLower(name)]
}

// SendGameCommand runs a console command.
func (s *Simulation) SendGameCommand(cmd string) error {
	if !s.initialized {
		return engine.ErrNotInitialized
	}
	fields := strings.Fields(strings.ToLower(cmd))
	if len(fields) == 0 {
		return fmt.Errorf("%w: empty", ErrUnknownCommand)
	}
	switch fields[0] {
	case "iddqd", "god":
		if s.cvar("sv_cheats") == 0 {
			return fmt.Errorf("%s: %w", fields[0], ErrCheatsDisabled)
		}
		s.god = !s.god
		s.log.Info("God mode toggled", "enabled", s.god)
	case "kill":
		s.health = 0
		s.finished = s.running
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
	return nil
}

// NewEpisode puts the player back at the scenario start and renders tic 0.
func (s *Simulation) NewEpisode() error {
	if !s.initialized {
		return engine.ErrNotInitialized
	}
	s.tic = 0
	s.x, s.y = s.scn.Player.X, s.scn.Player.Y
	s.angle = s.scn.Player.Angle
	s.pitch = 0
	s.health = startHealth
	s.running = true
	s.finished = false
	for b := range s.buttons {
		s.buttons[b] = 0
	}
	s.render()
	return nil
}

// IsEpisodeFinished reports whether the running episode has ended. It is
// true before the first episode and after Close.
func (s *Simulation) IsEpisodeFinished() bool {
	return !s.running || s.finished || s.closed
}

// AdvanceAction steps one tic with the current button values.
func (s *Simulation) AdvanceAction(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.initialized {
		return engine.ErrNotInitialized
	}
	s.Step()
	return nil
}

// SetButton records the value of an available button for the next tic.
// Binary buttons read any non-zero value as pressed.
func (s *Simulation) SetButton(b core.Button, v float64) {
	if !s.available[b] {
		return
	}
	if !b.IsDelta() && v != 0 {
		v = core.ButtonPressed
	}
	s.buttons[b] = v
}

// GetButton returns the value a button had during the last tic.
func (s *Simulation) GetButton(b core.Button) float64 {
	return s.buttons[b]
}

// GetState returns the most recent frame, nil before the first episode.
func (s *Simulation) GetState() *engine.State {
	return s.state
}

// Frame exposes the RGBA render target of the last frame.
func (s *Simulation) Frame() *image.RGBA {
	return s.frame
}

// Finish ends the running episode.
func (s *Simulation) Finish() {
	s.finished = true
}

// Close releases the frame buffers.
func (s *Simulation) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.frame = nil
	s.labels = nil
	s.zbuf = nil
	return nil
}

// Health returns the player's health.
func (s *Simulation) Health() float64 { return s.health }

// GodMode reports whether damage is disabled.
func (s *Simulation) GodMode() bool { return s.god }

// Position returns the player's map position and view angle in degrees.
func (s *Simulation) Position() (x, y, angle float64) { return s.x, s.y, s.angle }

// Place moves the player, for tests and scripted starts.
func (s *Simulation) Place(x, y, angle float64) {
	s.x, s.y, s.angle = x, y, angle
	if s.running && !s.closed {
		s.render()
	}
}

// Step advances the world by one tic and renders the result.
func (s *Simulation) Step() {
	if s.IsEpisodeFinished() {
		return
	}
	s.tic++
	s.applyInput()

	switch s.scn.Tile(int(s.x), int(s.y)) {
	case scenario.TileExit:
		s.log.Info("Exit reached", "tic", s.tic)
		s.finished = true
	case scenario.TileHazard:
		if !s.god && s.tic%hazardPeriod == 0 {
			s.health -= s.scn.HazardDamage
		}
	}
	if s.health <= 0 {
		s.health = 0
		s.log.Info("Player died", "tic", s.tic)
		s.finished = true
	}
	if s.scn.Timeout > 0 && s.tic >= s.scn.Timeout {
		s.finished = true
	}
	s.render()
}

func (s *Simulation) applyInput() {
	b := s.buttons
	turn := (b[core.ButtonTurnRight] - b[core.ButtonTurnLeft]) * turnSpeed
	turn += b[core.ButtonTurnLeftRightDelta]
	s.angle = math.Mod(s.angle+turn+360, 360)

	if s.cvar("freelook") != 0 {
		s.pitch = clamp(s.pitch-b[core.ButtonLookUpDownDelta], -maxPitch, maxPitch)
	}

	forward := (b[core.ButtonMoveForward] - b[core.ButtonMoveBackward]) * moveSpeed
	strafe := (b[core.ButtonMoveRight]-b[core.ButtonMoveLeft])*strafeSpeed + b[core.ButtonMoveLeftRightDelta]*deltaStrafe

	rad := s.angle * math.Pi / 180
	dirX, dirY := math.Cos(rad), math.Sin(rad)
	dx := dirX*forward - dirY*strafe
	dy := dirY*forward + dirX*strafe
	s.moving = dx != 0 || dy != 0
	s.tryMove(dx, dy)
}

// tryMove slides along walls by resolving each axis separately.
func (s *Simulation) tryMove(dx, dy float64) {
	if dx != 0 {
		nx := s.x + dx
		edge := nx + math.Copysign(playerRadius, dx)
		if !s.scn.IsWall(int(edge), int(s.y)) {
			s.x = nx
		}
	}
	if dy != 0 {
		ny := s.y + dy
		edge := ny + math.Copysign(playerRadius, dy)
		if !s.scn.IsWall(int(s.x), int(edge)) {
			s.y = ny
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
