//go:build gocv

package imaging

import (
	"fmt"
	"io"

	"github.com/labelshot/labelshot/pkg/core"
	"gocv.io/x/gocv"
)

// GocvEncoder encodes through OpenCV, matching what cv2.imwrite produces for BGR frames.
type GocvEncoder struct{}

func newGocvEncoder() (Encoder, error) {
	return GocvEncoder{}, nil
}

// Encode converts buf to an 8-bit BGR (or single channel) Mat and writes the PNG bytes.
func (GocvEncoder) Encode(w io.Writer, buf *Buffer) error {
	if err := buf.Validate(); err != nil {
		return err
	}

	var (
		mat gocv.Mat
		err error
	)
	if buf.Format == core.FormatGray8 {
		mat, err = gocv.NewMatFromBytes(buf.Height, buf.Width, gocv.MatTypeCV8UC1, buf.Data)
	} else {
		bgr := buf
		if buf.Format != core.FormatBGR24 {
			bgr = NewBuffer(core.FormatBGR24, buf.Width, buf.Height)
			for y := 0; y < buf.Height; y++ {
				for x := 0; x < buf.Width; x++ {
					bgr.Set(x, y, buf.At(x, y))
				}
			}
		}
		mat, err = gocv.NewMatFromBytes(bgr.Height, bgr.Width, gocv.MatTypeCV8UC3, bgr.Data)
	}
	if err != nil {
		return fmt.Errorf("build mat: %w", err)
	}
	defer mat.Close()

	encoded, err := gocv.IMEncode(gocv.PNGFileExt, mat)
	if err != nil {
		return fmt.Errorf("opencv encode: %w", err)
	}
	defer encoded.Close()

	_, err = w.Write(encoded.GetBytes())
	return err
}

// Extension returns ".png".
func (GocvEncoder) Extension() string { return ".png" }
