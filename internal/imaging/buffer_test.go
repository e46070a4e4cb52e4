package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/labelshot/labelshot/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_PackedChannelOrder(t *testing.T) {
	c := color.RGBA{R: 10, G: 20, B: 30, A: 255}
	tests := []struct {
		format core.ScreenFormat
		want   []byte
	}{
		{core.FormatRGB24, []byte{10, 20, 30}},
		{core.FormatBGR24, []byte{30, 20, 10}},
		{core.FormatRGBA32, []byte{10, 20, 30, 255}},
		{core.FormatARGB32, []byte{255, 10, 20, 30}},
		{core.FormatBGRA32, []byte{30, 20, 10, 255}},
		{core.FormatABGR32, []byte{255, 30, 20, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			buf := NewBuffer(tt.format, 2, 1)
			buf.Set(1, 0, c)
			n := tt.format.Channels()
			assert.Equal(t, tt.want, buf.Data[n:2*n])
			assert.Equal(t, c, buf.At(1, 0))
		})
	}
}

func TestBuffer_PlanarLayout(t *testing.T) {
	buf := NewBuffer(core.FormatCRCGCB, 2, 2)
	buf.Set(1, 1, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	assert.Equal(t, byte(1), buf.Data[3])
	assert.Equal(t, byte(2), buf.Data[4+3])
	assert.Equal(t, byte(3), buf.Data[8+3])

	bgr := NewBuffer(core.FormatCBCGCR, 2, 2)
	bgr.Set(1, 1, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	assert.Equal(t, byte(3), bgr.Data[3])
	assert.Equal(t, color.RGBA{R: 1, G: 2, B: 3, A: 255}, bgr.At(1, 1))
}

func TestBuffer_SingleChannelFormats(t *testing.T) {
	gray := NewBuffer(core.FormatGray8, 1, 1)
	gray.Set(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	assert.Equal(t, byte(255), gray.Data[0])
	_, ok := gray.Image().(*image.Gray)
	assert.True(t, ok)

	pal := NewBuffer(core.FormatDoom256Colors8, 1, 1)
	pal.Set(0, 0, WarningRed)
	assert.Equal(t, byte(Palette256.Index(WarningRed)), pal.Data[0])
	_, ok = pal.Image().(*image.Paletted)
	assert.True(t, ok)
}

func TestBuffer_OutOfBoundsIgnored(t *testing.T) {
	buf := NewBuffer(core.FormatRGB24, 2, 2)
	before := buf.Clone()
	buf.Set(-1, 0, WarningRed)
	buf.Set(2, 0, WarningRed)
	buf.Set(0, 5, WarningRed)
	assert.True(t, buf.Equal(before))
	assert.Equal(t, color.RGBA{}, buf.At(9, 9))
}

func TestFromRGBA(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(2, 1, color.RGBA{R: 7, G: 8, B: 9, A: 255})
	buf := FromRGBA(img, core.FormatBGR24)
	require.NoError(t, buf.Validate())
	assert.Equal(t, color.RGBA{R: 7, G: 8, B: 9, A: 255}, buf.At(2, 1))
}

func TestBuffer_Validate(t *testing.T) {
	buf := &Buffer{Format: core.FormatRGB24, Width: 2, Height: 2, Data: make([]byte, 5)}
	require.Error(t, buf.Validate())
	require.Error(t, (&Buffer{Format: core.FormatRGB24}).Validate())
}

func TestDrawOutline(t *testing.T) {
	buf := NewBuffer(core.FormatBGR24, 20, 20)
	DrawOutline(buf, 2, 3, 5, 4, WarningRed)

	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			want := color.RGBA{A: 255}
			if onOutline(x, y, 2, 3, 5, 4) {
				want = WarningRed
			}
			require.Equal(t, want, buf.At(x, y), "pixel %d,%d", x, y)
		}
	}
}

func TestDrawOutline_ClipsAtEdges(t *testing.T) {
	buf := NewBuffer(core.FormatRGB24, 4, 4)
	assert.NotPanics(t, func() {
		DrawOutline(buf, 2, 2, 10, 10, WarningRed)
		DrawOutline(buf, -3, -3, 4, 4, WarningRed)
	})
	assert.Equal(t, WarningRed, buf.At(2, 2))
	assert.Equal(t, WarningRed, buf.At(0, 0))
}

func TestDrawOutline_EmptyBox(t *testing.T) {
	buf := NewBuffer(core.FormatRGB24, 4, 4)
	before := buf.Clone()
	DrawOutline(buf, 1, 1, 0, 3, WarningRed)
	assert.True(t, buf.Equal(before))
}

func TestPNGEncoder_RoundTrip(t *testing.T) {
	buf := NewBuffer(core.FormatBGR24, 4, 3)
	buf.Set(1, 2, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	var out bytes.Buffer
	require.NoError(t, PNGEncoder{}.Encode(&out, buf))

	img, err := png.Decode(&out)
	require.NoError(t, err)
	r, g, b, _ := img.At(1, 2).RGBA()
	assert.Equal(t, uint32(200), r>>8)
	assert.Equal(t, uint32(100), g>>8)
	assert.Equal(t, uint32(50), b>>8)
}

func TestPNGEncoder_RejectsMalformedBuffer(t *testing.T) {
	var out bytes.Buffer
	err := PNGEncoder{}.Encode(&out, &Buffer{Format: core.FormatRGB24, Width: 2, Height: 2})
	require.Error(t, err)
	assert.Zero(t, out.Len())
}

func TestNewEncoder(t *testing.T) {
	enc, err := NewEncoder("png")
	require.NoError(t, err)
	assert.Equal(t, ".png", enc.Extension())

	_, err = NewEncoder("bmp")
	require.Error(t, err)
}

// onOutline reports whether (px, py) lies on the border of the box.
func onOutline(px, py, x, y, width, height int) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	right := x + width - 1
	bottom := y + height - 1
	if px < x || px > right || py < y || py > bottom {
		return false
	}
	return px == x || px == right || py == y || py == bottom
}
