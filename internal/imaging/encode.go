package imaging

import (
	"fmt"
	"image/png"
	"io"
)

// Encoder serialises a frame buffer into an image file format.
type Encoder interface {
	Encode(w io.Writer, buf *Buffer) error
	Extension() string
}

// PNGEncoder writes buffers with the standard library PNG encoder.
type PNGEncoder struct {
	Compression png.CompressionLevel
}

// Encode converts buf and writes it as PNG.
func (e PNGEncoder) Encode(w io.Writer, buf *Buffer) error {
	if err := buf.Validate(); err != nil {
		return err
	}
	enc := png.Encoder{CompressionLevel: e.Compression}
	return enc.Encode(w, buf.Image())
}

// Extension returns ".png".
func (PNGEncoder) Extension() string { return ".png" }

// NewEncoder returns the encoder registered under name ("png" or "gocv").
func NewEncoder(name string) (Encoder, error) {
	switch name {
	case "", "png":
		return PNGEncoder{Compression: png.DefaultCompression}, nil
	case "gocv":
		return newGocvEncoder()
	default:
		return nil, fmt.Errorf("unknown image encoder: %s", name)
	}
}
