// pkg/core/screen.go
package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnknownResolution   = errors.New("unknown screen resolution")
	ErrUnknownScreenFormat = errors.New("unknown screen format")
)

// Resolution is a named render resolution.
type Resolution struct {
	Name   string
	Width  int
	Height int
}

func (r Resolution) String() string { return r.Name }

// resolutions lists every accepted resolution symbol.
var resolutions = []Resolution{
	{"RES_160X120", 160, 120},
	{"RES_200X125", 200, 125},
	{"RES_200X150", 200, 150},
	{"RES_256X144", 256, 144},
	{"RES_256X160", 256, 160},
	{"RES_256X192", 256, 192},
	{"RES_320X180", 320, 180},
	{"RES_320X200", 320, 200},
	{"RES_320X240", 320, 240},
	{"RES_320X256", 320, 256},
	{"RES_400X225", 400, 225},
	{"RES_400X250", 400, 250},
	{"RES_400X300", 400, 300},
	{"RES_512X288", 512, 288},
	{"RES_512X320", 512, 320},
	{"RES_512X384", 512, 384},
	{"RES_640X360", 640, 360},
	{"RES_640X400", 640, 400},
	{"RES_640X480", 640, 480},
	{"RES_800X450", 800, 450},
	{"RES_800X500", 800, 500},
	{"RES_800X600", 800, 600},
	{"RES_1024X576", 1024, 576},
	{"RES_1024X640", 1024, 640},
	{"RES_1024X768", 1024, 768},
	{"RES_1280X720", 1280, 720},
	{"RES_1280X800", 1280, 800},
	{"RES_1280X960", 1280, 960},
	{"RES_1280X1024", 1280, 1024},
	{"RES_1400X787", 1400, 787},
	{"RES_1400X875", 1400, 875},
	{"RES_1400X1050", 1400, 1050},
	{"RES_1600X900", 1600, 900},
	{"RES_1600X1000", 1600, 1000},
	{"RES_1600X1200", 1600, 1200},
	{"RES_1920X1080", 1920, 1080},
}

// ParseResolution looks up a resolution by its symbol, e.g. "RES_640X480".
func ParseResolution(name string) (Resolution, error) {
	for _, r := range resolutions {
		if r.Name == name {
			return r, nil
		}
	}
	return Resolution{}, fmt.Errorf("%w %q (valid: %s)", ErrUnknownResolution, name, strings.Join(ResolutionNames(), ", "))
}

// ResolutionNames returns all accepted resolution symbols in ascending size order.
func ResolutionNames() []string {
	names := make([]string, len(resolutions))
	for i, r := range resolutions {
		names[i] = r.Name
	}
	return names
}

// ScreenFormat describes the memory layout of a frame buffer.
type ScreenFormat int

const (
	FormatCRCGCB ScreenFormat = iota
	FormatRGB24
	FormatRGBA32
	FormatARGB32
	FormatCBCGCR
	FormatBGR24
	FormatBGRA32
	FormatABGR32
	FormatGray8
	FormatDoom256Colors8
)

var screenFormatNames = map[ScreenFormat]string{
	FormatCRCGCB:         "CRCGCB",
	FormatRGB24:          "RGB24",
	FormatRGBA32:         "RGBA32",
	FormatARGB32:         "ARGB32",
	FormatCBCGCR:         "CBCGCR",
	FormatBGR24:          "BGR24",
	FormatBGRA32:         "BGRA32",
	FormatABGR32:         "ABGR32",
	FormatGray8:          "GRAY8",
	FormatDoom256Colors8: "DOOM_256_COLORS8",
}

func (f ScreenFormat) String() string {
	if name, ok := screenFormatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("ScreenFormat(%d)", int(f))
}

// Channels returns the number of bytes stored per pixel.
func (f ScreenFormat) Channels() int {
	switch f {
	case FormatGray8, FormatDoom256Colors8:
		return 1
	case FormatRGBA32, FormatARGB32, FormatBGRA32, FormatABGR32:
		return 4
	default:
		return 3
	}
}

// Planar reports whether channels are stored as separate planes (channels-first).
func (f ScreenFormat) Planar() bool {
	return f == FormatCRCGCB || f == FormatCBCGCR
}

// ParseScreenFormat looks up a screen format by its symbol, e.g. "BGR24".
func ParseScreenFormat(name string) (ScreenFormat, error) {
	for f, n := range screenFormatNames {
		if n == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w %q (valid: %s)", ErrUnknownScreenFormat, name, strings.Join(ScreenFormatNames(), ", "))
}

// ScreenFormatNames returns all accepted format symbols in declaration order.
func ScreenFormatNames() []string {
	formats := make([]ScreenFormat, 0, len(screenFormatNames))
	for f := range screenFormatNames {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = f.String()
	}
	return names
}
