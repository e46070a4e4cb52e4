package raycast

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/labelshot/labelshot/internal/engine"
	"github.com/labelshot/labelshot/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const corridor = `name: corridor
map:
  - "#######"
  - "#.....#"
  - "#.....#"
  - "#.....#"
  - "#######"
player: {x: 1.5, y: 2.5, angle: 0}
objects:
  - {id: 3, name: torch, x: 4.5, y: 2.5, color: "#ffaa00", width: 0.4, height: 0.6}
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scn.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func testSettings(t *testing.T, body string) engine.Settings {
	t.Helper()
	res, err := core.ParseResolution("RES_160X120")
	require.NoError(t, err)
	return engine.Settings{
		ScenarioPath:        writeScenario(t, body),
		Mode:                core.ModeAsyncSpectator,
		LabelsBufferEnabled: true,
		ScreenFormat:        core.FormatBGR24,
		Resolution:          res,
		GameArgs:            "+freelook 1 +movebob 0 +sv_cheats 1",
		AvailableButtons:    core.CaptureButtons,
	}
}

func startSim(t *testing.T, settings engine.Settings) *Simulation {
	t.Helper()
	sim := New()
	require.NoError(t, sim.Init(settings))
	require.NoError(t, sim.NewEpisode())
	t.Cleanup(func() { _ = sim.Close() })
	return sim
}

func TestSimulation_LabelsObjectAhead(t *testing.T) {
	sim := startSim(t, testSettings(t, corridor))

	st := sim.GetState()
	require.NotNil(t, st)
	require.Len(t, st.Labels, 1)
	assert.Equal(t, core.Label{ObjectID: 3, ObjectName: "torch", Value: 1, X: 72, Y: 56, Width: 16, Height: 24}, st.Labels[0])

	assert.Equal(t, core.FormatBGR24, st.Screen.Format)
	assert.Equal(t, 160, st.Screen.Width)
	assert.Equal(t, 120, st.Screen.Height)
	require.Len(t, st.LabelsBuffer, 160*120)
}

func TestSimulation_LabelBoxMatchesBuffer(t *testing.T) {
	sim := startSim(t, testSettings(t, corridor))
	sim.Place(1.7, 2.2, 10)

	st := sim.GetState()
	require.Len(t, st.Labels, 1)
	l := st.Labels[0]

	w := st.Screen.Width
	var touchLeft, touchRight, touchTop, touchBottom bool
	for i, v := range st.LabelsBuffer {
		if v != l.Value {
			continue
		}
		x, y := i%w, i/w
		require.True(t, x >= l.X && x < l.X+l.Width && y >= l.Y && y < l.Y+l.Height, "pixel %d,%d outside box", x, y)
		touchLeft = touchLeft || x == l.X
		touchRight = touchRight || x == l.X+l.Width-1
		touchTop = touchTop || y == l.Y
		touchBottom = touchBottom || y == l.Y+l.Height-1
	}
	assert.True(t, touchLeft && touchRight && touchTop && touchBottom, "box is not tight")
}

func TestSimulation_NoLabelsBehindPlayerOrWall(t *testing.T) {
	sim := startSim(t, testSettings(t, corridor))
	sim.Place(1.5, 2.5, 180)
	st := sim.GetState()
	assert.Empty(t, st.Labels)
	assert.NotNil(t, st.Labels)

	walled := `map:
  - "#######"
  - "#..#..#"
  - "#..#..#"
  - "#..#..#"
  - "#######"
player: {x: 1.5, y: 2.5}
objects:
  - {id: 3, name: torch, x: 4.5, y: 2.5}
`
	sim = startSim(t, testSettings(t, walled))
	assert.Empty(t, sim.GetState().Labels)
}

func TestSimulation_LabelsDisabled(t *testing.T) {
	settings := testSettings(t, corridor)
	settings.LabelsBufferEnabled = false
	sim := startSim(t, settings)

	st := sim.GetState()
	assert.Nil(t, st.LabelsBuffer)
	assert.Nil(t, st.Labels)
}

func TestSimulation_HUDHidesObjectPixels(t *testing.T) {
	settings := testSettings(t, corridor)
	settings.RenderHUD = true
	settings.RenderWeapon = true
	sim := startSim(t, settings)
	sim.Place(3.6, 2.5, 0) // close enough that the torch reaches into the status bar

	st := sim.GetState()
	require.Len(t, st.Labels, 1)
	bar := statusBarHeight(st.Screen.Height)
	assert.LessOrEqual(t, st.Labels[0].Y+st.Labels[0].Height, st.Screen.Height-bar)
	assert.Equal(t, hudColor, st.Screen.At(st.Screen.Width-1, st.Screen.Height-1))
}

func TestSimulation_Movement(t *testing.T) {
	sim := startSim(t, testSettings(t, corridor))
	ctx := context.Background()

	sim.SetButton(core.ButtonMoveForward, 1)
	for i := 0; i < 10; i++ {
		require.NoError(t, sim.AdvanceAction(ctx))
	}
	x, y, _ := sim.Position()
	assert.InDelta(t, 2.3, x, 1e-9)
	assert.InDelta(t, 2.5, y, 1e-9)
	assert.Equal(t, 1.0, sim.GetButton(core.ButtonMoveForward))

	for i := 0; i < 100; i++ {
		require.NoError(t, sim.AdvanceAction(ctx))
	}
	x, _, _ = sim.Position()
	assert.Less(t, x, 6-playerRadius)
	assert.Equal(t, uint(110), sim.GetState().Tic)
}

func TestSimulation_TurnAndUnavailableButtons(t *testing.T) {
	settings := testSettings(t, corridor)
	settings.AvailableButtons = []core.Button{core.ButtonTurnRight, core.ButtonUse}
	sim := startSim(t, settings)

	sim.SetButton(core.ButtonMoveForward, 1)
	sim.SetButton(core.ButtonTurnRight, 1)
	require.NoError(t, sim.AdvanceAction(context.Background()))

	x, _, angle := sim.Position()
	assert.Equal(t, 1.5, x)
	assert.InDelta(t, turnSpeed, angle, 1e-9)
	assert.Zero(t, sim.GetButton(core.ButtonMoveForward))
}

func TestSimulation_BinaryButtonsNormalised(t *testing.T) {
	sim := startSim(t, testSettings(t, corridor))

	sim.SetButton(core.ButtonUse, 0.3)
	sim.SetButton(core.ButtonTurnLeftRightDelta, -2.5)
	assert.Equal(t, core.ButtonPressed, sim.GetButton(core.ButtonUse))
	assert.Equal(t, -2.5, sim.GetButton(core.ButtonTurnLeftRightDelta))

	sim.SetButton(core.ButtonUse, 0)
	assert.Zero(t, sim.GetButton(core.ButtonUse))
}

func TestSimulation_FreelookCVar(t *testing.T) {
	settings := testSettings(t, corridor)
	settings.GameArgs = "+freelook 0"
	sim := startSim(t, settings)
	sim.SetButton(core.ButtonLookUpDownDelta, 10)
	require.NoError(t, sim.AdvanceAction(context.Background()))
	assert.Zero(t, sim.pitch)

	settings = testSettings(t, corridor)
	sim = startSim(t, settings)
	sim.SetButton(core.ButtonLookUpDownDelta, 100)
	require.NoError(t, sim.AdvanceAction(context.Background()))
	assert.Equal(t, -maxPitch, sim.pitch)
}

func TestSimulation_GodModeNeedsCheats(t *testing.T) {
	settings := testSettings(t, corridor)
	settings.GameArgs = "+sv_cheats 0"
	sim := startSim(t, settings)
	err := sim.SendGameCommand("iddqd")
	require.ErrorIs(t, err, ErrCheatsDisabled)
	assert.False(t, sim.GodMode())

	sim = startSim(t, testSettings(t, corridor))
	require.NoError(t, sim.SendGameCommand("iddqd"))
	assert.True(t, sim.GodMode())
	require.NoError(t, sim.SendGameCommand("god"))
	assert.False(t, sim.GodMode())
}

func TestSimulation_UnknownCommand(t *testing.T) {
	sim := startSim(t, testSettings(t, corridor))
	require.ErrorIs(t, sim.SendGameCommand("idkfa"), ErrUnknownCommand)
	require.ErrorIs(t, sim.SendGameCommand("  "), ErrUnknownCommand)
}

func TestSimulation_NotInitialized(t *testing.T) {
	sim := New()
	require.ErrorIs(t, sim.SendGameCommand("iddqd"), engine.ErrNotInitialized)
	require.ErrorIs(t, sim.NewEpisode(), engine.ErrNotInitialized)
	require.ErrorIs(t, sim.AdvanceAction(context.Background()), engine.ErrNotInitialized)
	assert.True(t, sim.IsEpisodeFinished())
	assert.Nil(t, sim.GetState())
}

func TestSimulation_InitErrors(t *testing.T) {
	settings := testSettings(t, corridor)
	settings.GameArgs = "+freelook"
	require.Error(t, New().Init(settings))

	settings = testSettings(t, corridor)
	settings.GameArgs = "freelook 1"
	require.Error(t, New().Init(settings))

	settings = testSettings(t, corridor)
	settings.ScenarioPath = filepath.Join(t.TempDir(), "missing.yaml")
	require.Error(t, New().Init(settings))

	settings = testSettings(t, corridor)
	sim := New()
	require.NoError(t, sim.Init(settings))
	require.Error(t, sim.Init(settings))
}

func TestSimulation_AdvanceHonoursContext(t *testing.T) {
	sim := startSim(t, testSettings(t, corridor))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sim.AdvanceAction(ctx), context.Canceled)
	assert.Zero(t, sim.GetState().Tic)
}

func TestSimulation_HazardDamage(t *testing.T) {
	hazard := `map:
  - "#####"
  - "#~~~#"
  - "#####"
player: {x: 2.5, y: 1.5}
hazardDamage: 10
`
	sim := startSim(t, testSettings(t, hazard))
	for i := 0; i < hazardPeriod; i++ {
		require.NoError(t, sim.AdvanceAction(context.Background()))
	}
	assert.Equal(t, 90.0, sim.Health())

	sim = startSim(t, testSettings(t, hazard))
	require.NoError(t, sim.SendGameCommand("iddqd"))
	for i := 0; i < hazardPeriod*20; i++ {
		require.NoError(t, sim.AdvanceAction(context.Background()))
	}
	assert.Equal(t, startHealth, sim.Health())
	assert.False(t, sim.IsEpisodeFinished())
}

func TestSimulation_EpisodeEnds(t *testing.T) {
	exit := `map:
  - "#####"
  - "#.X.#"
  - "#####"
player: {x: 2.5, y: 1.5}
`
	sim := startSim(t, testSettings(t, exit))
	assert.False(t, sim.IsEpisodeFinished())
	require.NoError(t, sim.AdvanceAction(context.Background()))
	assert.True(t, sim.IsEpisodeFinished())

	timed := corridor + "timeout: 5\n"
	sim = startSim(t, testSettings(t, timed))
	for i := 0; i < 5; i++ {
		assert.False(t, sim.IsEpisodeFinished())
		require.NoError(t, sim.AdvanceAction(context.Background()))
	}
	assert.True(t, sim.IsEpisodeFinished())

	sim = startSim(t, testSettings(t, corridor))
	sim.Finish()
	assert.True(t, sim.IsEpisodeFinished())
	require.NoError(t, sim.NewEpisode())
	assert.False(t, sim.IsEpisodeFinished())
}
