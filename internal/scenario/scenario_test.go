package scenario

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_BundledDefault(t *testing.T) {
	t.Chdir(t.TempDir())

	s, err := Load(DefaultPath)
	require.NoError(t, err)

	assert.Equal(t, "detection test environment", s.Name)
	assert.Equal(t, 16, s.Width)
	assert.Equal(t, 12, s.Height)
	assert.Len(t, s.Objects, 8)
	assert.False(t, s.IsWall(int(s.Player.X), int(s.Player.Y)))
	assert.Equal(t, byte(TileExit), s.Tile(14, 10))
	assert.Equal(t, byte(TileHazard), s.Tile(3, 2))
}

func TestLoad_MissingNonDefault(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read scenario")
}

func TestLoad_FromDiskTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	yml := "name: local\nmap:\n  - \"###\"\n  - \"#.#\"\n  - \"###\"\nplayer: {x: 1.5, y: 1.5}\n"
	require.NoError(t, os.WriteFile(DefaultPath, []byte(yml), 0644))

	s, err := Load(DefaultPath)
	require.NoError(t, err)
	assert.Equal(t, "local", s.Name)
}

func TestParse_JSON(t *testing.T) {
	raw := `{"name":"j","map":["####","#..#","####"],"player":{"x":1.5,"y":1.5},
		"objects":[{"id":4,"name":"lamp","x":2.5,"y":1.5,"color":"#102030"}]}`
	s, err := Parse([]byte(raw), ".json")
	require.NoError(t, err)
	require.Len(t, s.Objects, 1)
	assert.Equal(t, color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 255}, s.Objects[0].Color)
	assert.Equal(t, 0.4, s.Objects[0].Width, "width defaults when omitted")
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yml  string
		want string
	}{
		{"empty map", "name: x\n", "missing map"},
		{"ragged rows", "map: [\"###\", \"#.\", \"###\"]\n", "map row 1"},
		{"open border", "map: [\"###\", \"..#\", \"###\"]\nplayer: {x: 1.5, y: 1.5}\n", "border is open"},
		{"player in wall", "map: [\"###\", \"#.#\", \"###\"]\nplayer: {x: 0.5, y: 0.5}\n", "inside a wall"},
		{"zero id", "map: [\"###\", \"#.#\", \"###\"]\nplayer: {x: 1.5, y: 1.5}\nobjects: [{id: 0, name: a, x: 1.5, y: 1.5}]\n", "id must be positive"},
		{"duplicate id", "map: [\"####\", \"#..#\", \"####\"]\nplayer: {x: 1.5, y: 1.5}\nobjects: [{id: 1, name: a, x: 1.5, y: 1.5}, {id: 1, name: b, x: 2.5, y: 1.5}]\n", "duplicate id"},
		{"bad colour", "map: [\"###\", \"#.#\", \"###\"]\nplayer: {x: 1.5, y: 1.5}\nfloor: \"#zz0000\"\n", "invalid colour"},
		{"bad yaml", "map: [\n", "invalid scenario yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yml), ".yaml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#cb0000")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 203, A: 255}, c)

	_, err = ParseColor("cb00")
	require.Error(t, err)
}

func TestScenario_OutsideIsWall(t *testing.T) {
	s, err := Parse([]byte("map: [\"###\", \"#.#\", \"###\"]\nplayer: {x: 1.5, y: 1.5}\n"), ".yaml")
	require.NoError(t, err)
	assert.True(t, s.IsWall(-1, 0))
	assert.True(t, s.IsWall(3, 1))
	assert.False(t, s.IsWall(1, 1))
}
