package raycast

import (
	"image/color"
	"math"
	"sort"

	"github.com/labelshot/labelshot/internal/engine"
	"github.com/labelshot/labelshot/internal/imaging"
	"github.com/labelshot/labelshot/internal/scenario"
	"github.com/labelshot/labelshot/pkg/core"
)

const planeScale = 0.66 // tan(fov/2), ~66 degree horizontal field of view

var (
	hudColor    = color.RGBA{R: 48, G: 40, B: 32, A: 255}
	healthColor = color.RGBA{R: 40, G: 170, B: 60, A: 255}
	godColor    = color.RGBA{R: 220, G: 190, B: 40, A: 255}
	weaponColor = color.RGBA{R: 90, G: 90, B: 100, A: 255}
	hazardTint  = color.RGBA{R: 70, G: 110, B: 40, A: 255}
	exitTint    = color.RGBA{R: 150, G: 150, B: 40, A: 255}
)

// render draws the current view into the frame and labels buffers and
// publishes a State copy in the session's screen format.
func (s *Simulation) render() {
	w, h := s.frame.Rect.Dx(), s.frame.Rect.Dy()
	for i := range s.labels {
		s.labels[i] = 0
	}

	horizon := h/2 + s.horizonShift(h)
	s.drawBackground(w, h, horizon)
	s.castWalls(w, h, horizon)
	s.drawObjects(w, h, horizon)
	if s.settings.RenderWeapon {
		s.drawWeapon(w, h)
	}
	if s.settings.RenderHUD {
		s.drawHUD(w, h)
	}

	st := &engine.State{
		Tic:    s.tic,
		Screen: imaging.FromRGBA(s.frame, s.settings.ScreenFormat),
	}
	if s.settings.LabelsBufferEnabled {
		st.LabelsBuffer = append([]uint8(nil), s.labels...)
		st.Labels = s.collectLabels(w, h)
	}
	s.state = st
}

func (s *Simulation) horizonShift(h int) int {
	shift := s.pitch * float64(h) / 90
	if bob := s.cvar("movebob"); bob != 0 && s.moving {
		shift += bob * 4 * math.Sin(float64(s.tic)*0.3) * float64(h) / 240
	}
	return int(shift)
}

func (s *Simulation) drawBackground(w, h, horizon int) {
	for y := 0; y < h; y++ {
		c := s.scn.Ceiling
		if y >= horizon {
			c = s.scn.Floor
		}
		for x := 0; x < w; x++ {
			s.frame.SetRGBA(x, y, c)
		}
	}
	// Underfoot tile tint, so hazards read as hazards.
	switch s.scn.Tile(int(s.x), int(s.y)) {
	case scenario.TileHazard:
		s.tintFloor(w, h, horizon, hazardTint)
	case scenario.TileExit:
		s.tintFloor(w, h, horizon, exitTint)
	}
}

func (s *Simulation) tintFloor(w, h, horizon int, c color.RGBA) {
	start := horizon + (h-horizon)*2/3
	for y := max(start, 0); y < h; y++ {
		for x := 0; x < w; x++ {
			s.frame.SetRGBA(x, y, c)
		}
	}
}

func (s *Simulation) camera() (dirX, dirY, planeX, planeY float64) {
	rad := s.angle * math.Pi / 180
	dirX, dirY = math.Cos(rad), math.Sin(rad)
	return dirX, dirY, -dirY * planeScale, dirX * planeScale
}

// castWalls runs one DDA ray per screen column.
func (s *Simulation) castWalls(w, h, horizon int) {
	dirX, dirY, planeX, planeY := s.camera()
	for x := 0; x < w; x++ {
		camX := 2*float64(x)/float64(w) - 1
		rayX := dirX + planeX*camX
		rayY := dirY + planeY*camX

		mapX, mapY := int(s.x), int(s.y)
		deltaX, deltaY := math.Inf(1), math.Inf(1)
		if rayX != 0 {
			deltaX = math.Abs(1 / rayX)
		}
		if rayY != 0 {
			deltaY = math.Abs(1 / rayY)
		}

		var stepX, stepY int
		var sideX, sideY float64
		if rayX < 0 {
			stepX, sideX = -1, (s.x-float64(mapX))*deltaX
		} else {
			stepX, sideX = 1, (float64(mapX)+1-s.x)*deltaX
		}
		if rayY < 0 {
			stepY, sideY = -1, (s.y-float64(mapY))*deltaY
		} else {
			stepY, sideY = 1, (float64(mapY)+1-s.y)*deltaY
		}

		side := 0
		for i := 0; i < 4*(s.scn.Width+s.scn.Height); i++ {
			if sideX < sideY {
				sideX += deltaX
				mapX += stepX
				side = 0
			} else {
				sideY += deltaY
				mapY += stepY
				side = 1
			}
			if s.scn.IsWall(mapX, mapY) {
				break
			}
		}

		dist := sideY - deltaY
		if side == 0 {
			dist = sideX - deltaX
		}
		if dist < 1e-6 {
			dist = 1e-6
		}
		s.zbuf[x] = dist

		lineH := int(float64(h) / dist)
		top := max(horizon-lineH/2, 0)
		bottom := min(horizon+lineH/2, h-1)
		c := shade(s.scn.WallColor(s.scn.Tile(mapX, mapY)), dist, side == 1)
		for y := top; y <= bottom; y++ {
			s.frame.SetRGBA(x, y, c)
		}
	}
}

// spriteBox is an object's projected screen rectangle.
type spriteBox struct {
	index  int
	depth  float64
	left   int
	top    int
	width  int
	height int
}

// project returns the screen rectangle of every object in front of the camera,
// sorted far to near.
func (s *Simulation) project(w, h, horizon int) []spriteBox {
	dirX, dirY, planeX, planeY := s.camera()
	invDet := 1 / (planeX*dirY - dirX*planeY)

	boxes := make([]spriteBox, 0, len(s.scn.Objects))
	for i, obj := range s.scn.Objects {
		relX, relY := obj.X-s.x, obj.Y-s.y
		tx := invDet * (dirY*relX - dirX*relY)
		ty := invDet * (-planeY*relX + planeX*relY)
		if ty <= 0.1 {
			continue
		}
		screenX := int(float64(w) / 2 * (1 + tx/ty))
		scale := float64(h) / ty
		floorY := horizon + int(scale/2)
		height := int(scale * obj.Height)
		width := int(scale * obj.Width)
		if width < 1 || height < 1 {
			continue
		}
		boxes = append(boxes, spriteBox{
			index:  i,
			depth:  ty,
			left:   screenX - width/2,
			top:    floorY - height,
			width:  width,
			height: height,
		})
	}
	sort.SliceStable(boxes, func(a, b int) bool { return boxes[a].depth > boxes[b].depth })
	return boxes
}

// drawObjects paints objects as flat billboards, nearest last, and stamps
// their label value wherever they beat the wall depth.
func (s *Simulation) drawObjects(w, h, horizon int) {
	for _, box := range s.project(w, h, horizon) {
		obj := s.scn.Objects[box.index]
		value := labelValue(box.index)
		c := shade(obj.Color, box.depth, false)
		for x := max(box.left, 0); x < min(box.left+box.width, w); x++ {
			if box.depth >= s.zbuf[x] {
				continue
			}
			for y := max(box.top, 0); y < min(box.top+box.height, h); y++ {
				s.frame.SetRGBA(x, y, c)
				s.labels[y*w+x] = value
			}
		}
	}
}

// labelValue maps an object index to its labels buffer value; 0 means none.
func labelValue(index int) uint8 {
	return uint8(index + 1)
}

// drawWeapon paints a centred weapon silhouette above the status bar.
func (s *Simulation) drawWeapon(w, h int) {
	ww, wh := max(w/6, 1), max(h/5, 1)
	left := (w - ww) / 2
	bottom := h
	if s.settings.RenderHUD {
		bottom -= statusBarHeight(h)
	}
	s.fillOverlay(left, bottom-wh, ww, wh, w, h, weaponColor)
}

// drawHUD paints the status bar with a health gauge.
func (s *Simulation) drawHUD(w, h int) {
	bar := statusBarHeight(h)
	s.fillOverlay(0, h-bar, w, bar, w, h, hudColor)

	gauge := healthColor
	if s.god {
		gauge = godColor
	}
	pad := max(bar/4, 1)
	full := w/3 - 2*pad
	filled := int(float64(full) * s.health / startHealth)
	s.fillOverlay(pad, h-bar+pad, filled, bar-2*pad, w, h, gauge)
}

func statusBarHeight(h int) int {
	return max(h/8, 1)
}

// fillOverlay paints screen-space UI, which hides any object beneath it.
func (s *Simulation) fillOverlay(x0, y0, width, height, w, h int, c color.RGBA) {
	for y := max(y0, 0); y < min(y0+height, h); y++ {
		for x := max(x0, 0); x < min(x0+width, w); x++ {
			s.frame.SetRGBA(x, y, c)
			s.labels[y*w+x] = 0
		}
	}
}

// collectLabels derives one bounding box per label value present in the buffer.
func (s *Simulation) collectLabels(w, h int) []core.Label {
	type bounds struct{ minX, minY, maxX, maxY int }
	found := make(map[uint8]*bounds)
	for y := 0; y < h; y++ {
		row := s.labels[y*w : (y+1)*w]
		for x, v := range row {
			if v == 0 {
				continue
			}
			b, ok := found[v]
			if !ok {
				found[v] = &bounds{minX: x, minY: y, maxX: x, maxY: y}
				continue
			}
			b.minX, b.maxX = min(b.minX, x), max(b.maxX, x)
			b.minY, b.maxY = min(b.minY, y), max(b.maxY, y)
		}
	}

	labels := make([]core.Label, 0, len(found))
	for i, obj := range s.scn.Objects {
		v := labelValue(i)
		b, ok := found[v]
		if !ok {
			continue
		}
		labels = append(labels, core.Label{
			ObjectID:   obj.ID,
			ObjectName: obj.Name,
			Value:      v,
			X:          b.minX,
			Y:          b.minY,
			Width:      b.maxX - b.minX + 1,
			Height:     b.maxY - b.minY + 1,
		})
	}
	return labels
}

// shade darkens c with distance; y-facing wall sides are darker still.
func shade(c color.RGBA, dist float64, dark bool) color.RGBA {
	f := 1 / (1 + dist*0.08)
	if dark {
		f *= 0.75
	}
	return color.RGBA{
		R: uint8(float64(c.R) * f),
		G: uint8(float64(c.G) * f),
		B: uint8(float64(c.B) * f),
		A: 255,
	}
}
