// Package window shows a raycast simulation in a desktop window and feeds it
// keyboard and mouse input in real time.
package window

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/labelshot/labelshot/internal/engine"
	"github.com/labelshot/labelshot/internal/engine/raycast"
	"github.com/labelshot/labelshot/pkg/core"
)

const (
	minWindowWidth   = 640
	mouseSensitivity = 0.15 // degrees per pixel
)

// Game is an engine.Game backed by an ebiten window. Run must be called from
// the main goroutine; every other method may be called from the session
// goroutine.
type Game struct {
	tps   int
	title string
	log   *slog.Logger

	mu       sync.Mutex
	sim      *raycast.Simulation
	settings engine.Settings
	state    *engine.State
	display  []byte
	width    int
	height   int

	cursorX, cursorY int
	cursorSeen       bool
	captured         bool

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	closeOnce sync.Once
	frames    chan struct{}
}

var _ engine.Game = (*Game)(nil)

// New returns a window that ticks tps times per second.
func New(title string, tps int, logger *slog.Logger) *Game {
	if logger == nil {
		logger = slog.Default()
	}
	return &Game{
		tps:    tps,
		title:  title,
		log:    logger,
		sim:    raycast.New(),
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
		frames: make(chan struct{}, 1),
	}
}

func (g *Game) Init(settings engine.Settings) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if settings.Logger == nil {
		settings.Logger = g.log
	}
	if err := g.sim.Init(settings); err != nil {
		return err
	}
	if !settings.WindowVisible {
		g.log.Warn("Hidden windows are not supported, showing the window anyway")
	}
	if !settings.Mode.Async() {
		g.log.Warn("Synchronous modes are not supported, the window advances in real time", "mode", settings.Mode)
	}
	if !settings.RenderAllFrames {
		g.log.Debug("Rendering every frame regardless of settings")
	}

	g.settings = settings
	g.width, g.height = settings.Resolution.Width, settings.Resolution.Height
	g.display = make([]byte, 4*g.width*g.height)

	scale := max(minWindowWidth/g.width, 1)
	ebiten.SetWindowSize(g.width*scale, g.height*scale)
	ebiten.SetWindowTitle(g.title)
	ebiten.SetTPS(g.tps)

	g.readyOnce.Do(func() { close(g.ready) })
	return nil
}

func (g *Game) SendGameCommand(cmd string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sim.SendGameCommand(cmd)
}

func (g *Game) NewEpisode() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.sim.NewEpisode(); err != nil {
		return err
	}
	g.publish()
	return nil
}

// IsEpisodeFinished is also true once the window has been closed.
func (g *Game) IsEpisodeFinished() bool {
	select {
	case <-g.done:
		return true
	default:
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sim.IsEpisodeFinished()
}

// AdvanceAction waits for the window's next tick.
func (g *Game) AdvanceAction(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-g.done:
		return nil
	case <-g.frames:
		return nil
	}
}

func (g *Game) GetButton(b core.Button) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sim.GetButton(b)
}

func (g *Game) GetState() *engine.State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Close stops the window loop and releases the simulation.
func (g *Game) Close() error {
	g.closeOnce.Do(func() { close(g.done) })
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sim.Close()
}

// Run blocks until Init has completed, then runs the window until it is
// closed or Close is called.
func (g *Game) Run(ctx context.Context) error {
	select {
	case <-g.ready:
	case <-g.done:
		return nil
	case <-ctx.Done():
		return nil
	}

	if g.settings.Mode.Spectator() {
		ebiten.SetCursorMode(ebiten.CursorModeCaptured)
		g.captured = true
	}
	err := ebiten.RunGame(g)
	g.closeOnce.Do(func() { close(g.done) })
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

// Update implements ebiten.Game.
func (g *Game) Update() error {
	select {
	case <-g.done:
		return ebiten.Termination
	default:
	}

	g.mu.Lock()
	g.pollInput()
	g.sim.Step()
	g.publish()
	g.mu.Unlock()

	select {
	case g.frames <- struct{}{}:
	default:
	}
	return nil
}

// Draw implements ebiten.Game.
func (g *Game) Draw(screen *ebiten.Image) {
	g.mu.Lock()
	defer g.mu.Unlock()
	screen.WritePixels(g.display)
}

// Layout implements ebiten.Game.
func (g *Game) Layout(_, _ int) (int, int) {
	return g.width, g.height
}

// publish copies the simulation's frame for Draw and its state for the session.
func (g *Game) publish() {
	if frame := g.sim.Frame(); frame != nil {
		copy(g.display, frame.Pix)
	}
	g.state = g.sim.GetState()
}

// pollInput maps keyboard and mouse onto the simulation's buttons.
func (g *Game) pollInput() {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) && g.settings.Mode.Spectator() {
		g.captured = !g.captured
		if g.captured {
			ebiten.SetCursorMode(ebiten.CursorModeCaptured)
		} else {
			ebiten.SetCursorMode(ebiten.CursorModeVisible)
		}
	}

	g.sim.SetButton(core.ButtonMoveForward, pressed(ebiten.KeyW))
	g.sim.SetButton(core.ButtonMoveBackward, pressed(ebiten.KeyS))
	g.sim.SetButton(core.ButtonMoveLeft, pressed(ebiten.KeyA))
	g.sim.SetButton(core.ButtonMoveRight, pressed(ebiten.KeyD))
	g.sim.SetButton(core.ButtonTurnLeft, pressed(ebiten.KeyArrowLeft))
	g.sim.SetButton(core.ButtonTurnRight, pressed(ebiten.KeyArrowRight))
	g.sim.SetButton(core.ButtonUse, pressed(ebiten.KeyE))

	x, y := ebiten.CursorPosition()
	var dx, dy int
	if g.cursorSeen && g.captured {
		dx, dy = x-g.cursorX, y-g.cursorY
	}
	g.cursorX, g.cursorY, g.cursorSeen = x, y, true
	g.sim.SetButton(core.ButtonTurnLeftRightDelta, float64(dx)*mouseSensitivity)
	g.sim.SetButton(core.ButtonLookUpDownDelta, float64(dy)*mouseSensitivity)
}

func pressed(k ebiten.Key) float64 {
	if ebiten.IsKeyPressed(k) {
		return core.ButtonPressed
	}
	return 0
}
