package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResolution_AllNames(t *testing.T) {
	for _, name := range ResolutionNames() {
		r, err := ParseResolution(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, r.Name)
		assert.Positive(t, r.Width)
		assert.Positive(t, r.Height)
	}
}

func TestParseResolution_Default(t *testing.T) {
	r, err := ParseResolution("RES_640X480")
	require.NoError(t, err)
	assert.Equal(t, 640, r.Width)
	assert.Equal(t, 480, r.Height)
}

func TestParseResolution_Unknown(t *testing.T) {
	tests := []string{"", "RES_641X480", "res_640x480", "640x480"}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseResolution(name)
			require.ErrorIs(t, err, ErrUnknownResolution)
			assert.Contains(t, err.Error(), "RES_640X480", "error should list valid choices")
		})
	}
}

func TestParseScreenFormat_AllNames(t *testing.T) {
	names := ScreenFormatNames()
	require.Len(t, names, 10)
	assert.Equal(t, "CRCGCB", names[0])
	assert.Equal(t, "DOOM_256_COLORS8", names[len(names)-1])

	for _, name := range names {
		f, err := ParseScreenFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, f.String())
	}
}

func TestParseScreenFormat_Unknown(t *testing.T) {
	_, err := ParseScreenFormat("BGR")
	require.ErrorIs(t, err, ErrUnknownScreenFormat)
	assert.Contains(t, err.Error(), "BGR24")
}

func TestScreenFormat_Layout(t *testing.T) {
	tests := []struct {
		format   ScreenFormat
		channels int
		planar   bool
	}{
		{FormatCRCGCB, 3, true},
		{FormatCBCGCR, 3, true},
		{FormatRGB24, 3, false},
		{FormatBGR24, 3, false},
		{FormatRGBA32, 4, false},
		{FormatABGR32, 4, false},
		{FormatGray8, 1, false},
		{FormatDoom256Colors8, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			assert.Equal(t, tt.channels, tt.format.Channels())
			assert.Equal(t, tt.planar, tt.format.Planar())
		})
	}
}

func TestNewObjectRecord(t *testing.T) {
	rec := NewObjectRecord(Label{ObjectID: 3, ObjectName: "torch", Value: 9, X: 10, Y: 11, Width: 5, Height: 20})
	assert.Equal(t, ObjectRecord{ObjectID: 3, ObjectName: "torch", PosX: 10, PosY: 11, Width: 5, Height: 20}, rec)
}

func TestButton_String(t *testing.T) {
	assert.Equal(t, "USE", ButtonUse.String())
	assert.Equal(t, "LOOK_UP_DOWN_DELTA", ButtonLookUpDownDelta.String())
	assert.True(t, ButtonTurnLeftRightDelta.IsDelta())
	assert.False(t, ButtonUse.IsDelta())
	assert.True(t, ModeAsyncSpectator.Async())
	assert.True(t, ModeAsyncSpectator.Spectator())
}
