// Package imaging holds frame buffers in every supported screen format and the
// helpers that annotate and encode them.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"

	"github.com/labelshot/labelshot/pkg/core"
)

// Palette256 maps DOOM_256_COLORS8 indices to colours.
var Palette256 color.Palette = palette.Plan9

// Buffer is a frame buffer laid out according to Format.
// Packed formats are stored row-major (H×W×C), planar formats channels-first (C×H×W).
type Buffer struct {
	Format core.ScreenFormat
	Width  int
	Height int
	Data   []byte
}

// NewBuffer allocates a zeroed buffer.
func NewBuffer(format core.ScreenFormat, width, height int) *Buffer {
	return &Buffer{
		Format: format,
		Width:  width,
		Height: height,
		Data:   make([]byte, width*height*format.Channels()),
	}
}

// FromRGBA converts an RGBA image into a buffer of the given format.
func FromRGBA(img *image.RGBA, format core.ScreenFormat) *Buffer {
	b := img.Bounds()
	buf := NewBuffer(format, b.Dx(), b.Dy())
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			i := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			buf.Set(x, y, color.RGBA{R: img.Pix[i], G: img.Pix[i+1], B: img.Pix[i+2], A: 255})
		}
	}
	return buf
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	data := make([]byte, len(b.Data))
	copy(data, b.Data)
	return &Buffer{Format: b.Format, Width: b.Width, Height: b.Height, Data: data}
}

// Equal reports whether both buffers hold identical pixels in the same layout.
func (b *Buffer) Equal(o *Buffer) bool {
	return b.Format == o.Format && b.Width == o.Width && b.Height == o.Height && bytes.Equal(b.Data, o.Data)
}

// Validate checks that Data matches the declared dimensions.
func (b *Buffer) Validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("invalid buffer size %dx%d", b.Width, b.Height)
	}
	if want := b.Width * b.Height * b.Format.Channels(); len(b.Data) != want {
		return fmt.Errorf("buffer holds %d bytes, %s %dx%d needs %d", len(b.Data), b.Format, b.Width, b.Height, want)
	}
	return nil
}

// InBounds reports whether (x, y) addresses a pixel.
func (b *Buffer) InBounds(x, y int) bool {
	return x >= 0 && x < b.Width && y >= 0 && y < b.Height
}

// channel offsets (r, g, b, a) inside one packed pixel; -1 when absent.
func packedOffsets(f core.ScreenFormat) (r, g, bl, a int) {
	switch f {
	case core.FormatRGB24:
		return 0, 1, 2, -1
	case core.FormatRGBA32:
		return 0, 1, 2, 3
	case core.FormatARGB32:
		return 1, 2, 3, 0
	case core.FormatBGR24:
		return 2, 1, 0, -1
	case core.FormatBGRA32:
		return 2, 1, 0, 3
	case core.FormatABGR32:
		return 3, 2, 1, 0
	}
	return -1, -1, -1, -1
}

// Set writes one pixel. Out-of-range coordinates are ignored.
func (b *Buffer) Set(x, y int, c color.RGBA) {
	if !b.InBounds(x, y) {
		return
	}
	switch {
	case b.Format == core.FormatGray8:
		b.Data[y*b.Width+x] = luma(c)
	case b.Format == core.FormatDoom256Colors8:
		b.Data[y*b.Width+x] = uint8(Palette256.Index(c))
	case b.Format.Planar():
		plane := b.Width * b.Height
		i := y*b.Width + x
		first, last := c.R, c.B
		if b.Format == core.FormatCBCGCR {
			first, last = c.B, c.R
		}
		b.Data[i] = first
		b.Data[plane+i] = c.G
		b.Data[2*plane+i] = last
	default:
		ro, gofs, bo, ao := packedOffsets(b.Format)
		base := (y*b.Width + x) * b.Format.Channels()
		b.Data[base+ro] = c.R
		b.Data[base+gofs] = c.G
		b.Data[base+bo] = c.B
		if ao >= 0 {
			b.Data[base+ao] = 255
		}
	}
}

// At reads one pixel as opaque RGBA.
func (b *Buffer) At(x, y int) color.RGBA {
	if !b.InBounds(x, y) {
		return color.RGBA{}
	}
	switch {
	case b.Format == core.FormatGray8:
		v := b.Data[y*b.Width+x]
		return color.RGBA{R: v, G: v, B: v, A: 255}
	case b.Format == core.FormatDoom256Colors8:
		r, g, bl, _ := Palette256[b.Data[y*b.Width+x]].RGBA()
		return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(bl >> 8), A: 255}
	case b.Format.Planar():
		plane := b.Width * b.Height
		i := y*b.Width + x
		c := color.RGBA{R: b.Data[i], G: b.Data[plane+i], B: b.Data[2*plane+i], A: 255}
		if b.Format == core.FormatCBCGCR {
			c.R, c.B = c.B, c.R
		}
		return c
	default:
		ro, gofs, bo, _ := packedOffsets(b.Format)
		base := (y*b.Width + x) * b.Format.Channels()
		return color.RGBA{R: b.Data[base+ro], G: b.Data[base+gofs], B: b.Data[base+bo], A: 255}
	}
}

// Image converts the buffer into an image suitable for encoding.
// GRAY8 becomes *image.Gray, DOOM_256_COLORS8 *image.Paletted, everything else *image.RGBA.
func (b *Buffer) Image() image.Image {
	rect := image.Rect(0, 0, b.Width, b.Height)
	switch b.Format {
	case core.FormatGray8:
		img := image.NewGray(rect)
		copy(img.Pix, b.Data)
		return img
	case core.FormatDoom256Colors8:
		img := image.NewPaletted(rect, Palette256)
		copy(img.Pix, b.Data)
		return img
	}
	img := image.NewRGBA(rect)
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			c := b.At(x, y)
			i := img.PixOffset(x, y)
			img.Pix[i] = c.R
			img.Pix[i+1] = c.G
			img.Pix[i+2] = c.B
			img.Pix[i+3] = 255
		}
	}
	return img
}

// luma uses the ITU-R BT.601 weights.
func luma(c color.RGBA) uint8 {
	return uint8((299*uint32(c.R) + 587*uint32(c.G) + 114*uint32(c.B) + 500) / 1000)
}
