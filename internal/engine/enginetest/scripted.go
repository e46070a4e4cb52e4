// Package enginetest provides a scripted engine.Game for driving sessions in tests.
package enginetest

import (
	"context"
	"errors"

	"github.com/labelshot/labelshot/internal/engine"
	"github.com/labelshot/labelshot/internal/imaging"
	"github.com/labelshot/labelshot/pkg/core"
)

// Tic is one scripted frame.
type Tic struct {
	Use   bool
	State *engine.State // nil uses a blank frame at the session resolution
}

// Scripted replays a fixed list of tics. The episode finishes after the last one.
type Scripted struct {
	Tics []Tic

	InitErr    error
	CommandErr error
	AdvanceErr error

	Settings    engine.Settings
	Calls       []string // method names in call order, commands as "cmd:<name>"
	CloseCount  int
	initialized bool
	started     bool
	pos         int
}

var _ engine.Game = (*Scripted)(nil)

// New returns a Scripted engine that plays tics.
func New(tics ...Tic) *Scripted {
	return &Scripted{Tics: tics}
}

// Presses builds tics from a USE pattern such as "..##..#".
func Presses(pattern string) []Tic {
	tics := make([]Tic, len(pattern))
	for i, c := range pattern {
		tics[i].Use = c == '#'
	}
	return tics
}

func (s *Scripted) Init(settings engine.Settings) error {
	s.Calls = append(s.Calls, "Init")
	s.Settings = settings
	if s.InitErr != nil {
		return s.InitErr
	}
	s.initialized = true
	return nil
}

func (s *Scripted) SendGameCommand(cmd string) error {
	s.Calls = append(s.Calls, "cmd:"+cmd)
	if !s.initialized {
		return engine.ErrNotInitialized
	}
	return s.CommandErr
}

func (s *Scripted) NewEpisode() error {
	s.Calls = append(s.Calls, "NewEpisode")
	if !s.initialized {
		return engine.ErrNotInitialized
	}
	s.started = true
	s.pos = 0
	return nil
}

func (s *Scripted) IsEpisodeFinished() bool {
	return !s.started || s.pos >= len(s.Tics)
}

func (s *Scripted) AdvanceAction(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.AdvanceErr != nil {
		return s.AdvanceErr
	}
	if s.IsEpisodeFinished() {
		return errors.New("advance past episode end")
	}
	s.pos++
	return nil
}

// GetButton reports USE for the tic most recently advanced to.
func (s *Scripted) GetButton(b core.Button) float64 {
	if b != core.ButtonUse || s.pos == 0 || s.pos > len(s.Tics) {
		return 0
	}
	if s.Tics[s.pos-1].Use {
		return core.ButtonPressed
	}
	return 0
}

func (s *Scripted) GetState() *engine.State {
	if s.pos == 0 || s.pos > len(s.Tics) {
		return nil
	}
	if st := s.Tics[s.pos-1].State; st != nil {
		return st
	}
	res := s.Settings.Resolution
	return &engine.State{
		Tic:    uint(s.pos),
		Screen: imaging.NewBuffer(s.Settings.ScreenFormat, res.Width, res.Height),
		Labels: []core.Label{},
	}
}

func (s *Scripted) Close() error {
	s.Calls = append(s.Calls, "Close")
	s.CloseCount++
	return nil
}
