package imaging

import "image/color"

// WarningRed is the outline colour used for bounding boxes.
var WarningRed = color.RGBA{R: 203, G: 0, B: 0, A: 255}

// DrawOutline draws an unfilled one-pixel rectangle whose border pixels are
// columns x and x+width-1 and rows y and y+height-1. Pixels outside the buffer
// are skipped.
func DrawOutline(buf *Buffer, x, y, width, height int, c color.RGBA) {
	if width <= 0 || height <= 0 {
		return
	}
	right := x + width - 1
	bottom := y + height - 1
	for i := x; i <= right; i++ {
		buf.Set(i, y, c)
		buf.Set(i, bottom, c)
	}
	for j := y; j <= bottom; j++ {
		buf.Set(x, j, c)
		buf.Set(right, j, c)
	}
}
