// Package scenario parses the map files the simulated environment plays.
package scenario

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the scenario used when none is given on the command line.
const DefaultPath = "detection_test_environment.yaml"

//go:embed scenarios/*.yaml
var bundled embed.FS

// Tile kinds.
const (
	TileFloor  = '.'
	TileHazard = '~'
	TileExit   = 'X'
)

// MaxObjects is the number of distinct values a labels buffer pixel can carry.
const MaxObjects = 255

// File is the on-disk scenario format.
type File struct {
	Name         string            `yaml:"name" json:"name"`
	Map          []string          `yaml:"map" json:"map"`
	Walls        map[string]string `yaml:"walls" json:"walls"`
	Floor        string            `yaml:"floor" json:"floor"`
	Ceiling      string            `yaml:"ceiling" json:"ceiling"`
	Player       Spawn             `yaml:"player" json:"player"`
	Objects      []ObjectDef       `yaml:"objects" json:"objects"`
	Timeout      uint              `yaml:"timeout" json:"timeout"`
	HazardDamage float64           `yaml:"hazardDamage" json:"hazardDamage"`
}

// Spawn is the player start, in map cells. Angle is in degrees, 0 facing +x.
type Spawn struct {
	X     float64 `yaml:"x" json:"x"`
	Y     float64 `yaml:"y" json:"y"`
	Angle float64 `yaml:"angle" json:"angle"`
}

// ObjectDef is a labelled object placed in the map.
type ObjectDef struct {
	ID     int     `yaml:"id" json:"id"`
	Name   string  `yaml:"name" json:"name"`
	X      float64 `yaml:"x" json:"x"`
	Y      float64 `yaml:"y" json:"y"`
	Color  string  `yaml:"color" json:"color"`
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// Object is a validated ObjectDef.
type Object struct {
	ID     int
	Name   string
	X, Y   float64
	Color  color.RGBA
	Width  float64 // world units, fraction of a cell
	Height float64 // world units, 1.0 is wall height
}

// Scenario is a validated, ready-to-play map.
type Scenario struct {
	Name         string
	Path         string
	Width        int
	Height       int
	Tiles        [][]byte
	WallColors   map[byte]color.RGBA
	Floor        color.RGBA
	Ceiling      color.RGBA
	Player       Spawn
	Objects      []Object
	Timeout      uint
	HazardDamage float64
}

var defaultWallColor = color.RGBA{R: 110, G: 110, B: 110, A: 255}

// Load reads and validates the scenario at path. When path is DefaultPath and
// no such file exists on disk, the bundled copy is used.
func Load(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && filepath.Base(path) == DefaultPath && filepath.Dir(path) == "." {
			raw, err = bundled.ReadFile("scenarios/" + DefaultPath)
		}
		if err != nil {
			return nil, fmt.Errorf("read scenario: %w", err)
		}
	}
	s, err := Parse(raw, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	s.Path = path
	return s, nil
}

// Parse decodes a YAML (default) or JSON (".json" ext) scenario and validates it.
func Parse(raw []byte, ext string) (*Scenario, error) {
	var f File
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("invalid scenario json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("invalid scenario yaml: %w", err)
		}
	}
	return f.build()
}

func (f *File) build() (*Scenario, error) {
	if len(f.Map) == 0 {
		return nil, errors.New("missing map")
	}
	width := len(f.Map[0])
	s := &Scenario{
		Name:         f.Name,
		Width:        width,
		Height:       len(f.Map),
		Tiles:        make([][]byte, len(f.Map)),
		WallColors:   make(map[byte]color.RGBA),
		Player:       f.Player,
		Timeout:      f.Timeout,
		HazardDamage: f.HazardDamage,
	}
	if s.Name == "" {
		s.Name = "unnamed"
	}

	for y, row := range f.Map {
		if len(row) != width {
			return nil, fmt.Errorf("map row %d has %d tiles, expected %d", y, len(row), width)
		}
		s.Tiles[y] = []byte(row)
	}
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			edge := y == 0 || y == s.Height-1 || x == 0 || x == s.Width-1
			if edge && !IsWallTile(s.Tiles[y][x]) {
				return nil, fmt.Errorf("map border is open at %d,%d", x, y)
			}
		}
	}

	for key, hex := range f.Walls {
		if len(key) != 1 {
			return nil, fmt.Errorf("wall key %q must be a single tile character", key)
		}
		c, err := ParseColor(hex)
		if err != nil {
			return nil, fmt.Errorf("wall %q: %w", key, err)
		}
		s.WallColors[key[0]] = c
	}

	var err error
	if s.Floor, err = parseColorOr(f.Floor, color.RGBA{R: 60, G: 60, B: 60, A: 255}); err != nil {
		return nil, fmt.Errorf("floor: %w", err)
	}
	if s.Ceiling, err = parseColorOr(f.Ceiling, color.RGBA{R: 30, G: 30, B: 36, A: 255}); err != nil {
		return nil, fmt.Errorf("ceiling: %w", err)
	}

	if s.IsWall(int(f.Player.X), int(f.Player.Y)) {
		return nil, fmt.Errorf("player start %.2f,%.2f is inside a wall", f.Player.X, f.Player.Y)
	}

	if len(f.Objects) > MaxObjects {
		return nil, fmt.Errorf("%d objects exceed the limit of %d", len(f.Objects), MaxObjects)
	}
	seen := make(map[int]bool, len(f.Objects))
	for i, def := range f.Objects {
		if def.ID <= 0 {
			return nil, fmt.Errorf("object %d: id must be positive", i)
		}
		if seen[def.ID] {
			return nil, fmt.Errorf("object %d: duplicate id %d", i, def.ID)
		}
		seen[def.ID] = true
		if strings.TrimSpace(def.Name) == "" {
			return nil, fmt.Errorf("object %d: missing name", def.ID)
		}
		if s.IsWall(int(def.X), int(def.Y)) {
			return nil, fmt.Errorf("object %d (%s) is inside a wall", def.ID, def.Name)
		}
		c, err := parseColorOr(def.Color, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", def.ID, err)
		}
		obj := Object{ID: def.ID, Name: def.Name, X: def.X, Y: def.Y, Color: c, Width: def.Width, Height: def.Height}
		if obj.Width <= 0 {
			obj.Width = 0.4
		}
		if obj.Height <= 0 {
			obj.Height = 0.6
		}
		s.Objects = append(s.Objects, obj)
	}

	return s, nil
}

// IsWallTile reports whether a tile character blocks movement and sight.
func IsWallTile(t byte) bool {
	return t != TileFloor && t != TileHazard && t != TileExit
}

// Tile returns the tile at cell (x, y); cells outside the map read as walls.
func (s *Scenario) Tile(x, y int) byte {
	if x < 0 || y < 0 || x >= s.Width || y >= s.Height {
		return '#'
	}
	return s.Tiles[y][x]
}

// IsWall reports whether cell (x, y) is solid.
func (s *Scenario) IsWall(x, y int) bool {
	return IsWallTile(s.Tile(x, y))
}

// WallColor returns the colour for a wall tile.
func (s *Scenario) WallColor(t byte) color.RGBA {
	if c, ok := s.WallColors[t]; ok {
		return c
	}
	return defaultWallColor
}

// ParseColor decodes "#rrggbb".
func ParseColor(hex string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", hex)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", hex, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

func parseColorOr(hex string, fallback color.RGBA) (color.RGBA, error) {
	if hex == "" {
		return fallback, nil
	}
	return ParseColor(hex)
}
