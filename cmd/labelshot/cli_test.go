package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/labelshot/labelshot/internal/config"
	"github.com/labelshot/labelshot/pkg/core"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseAndLoad(t *testing.T, dir string, args ...string) (cliArgs, *pflag.FlagSet) {
	t.Helper()
	t.Cleanup(viper.Reset)

	fs := newFlagSet(&bytes.Buffer{})
	cli, err := parseArgs(fs, args)
	require.NoError(t, err)

	err = config.Load(dir)
	if err != nil {
		require.True(t, config.IsNotFound(err), err)
	}
	require.NoError(t, bindFlags(fs))
	return cli, fs
}

func TestFlags_Defaults(t *testing.T) {
	cli, _ := parseAndLoad(t, t.TempDir())
	assert.Equal(t, ".", cli.ConfigDir)
	assert.Empty(t, cli.LogLevel)

	opts := config.GetCaptureOptions()
	assert.Equal(t, config.CaptureOptions{
		Scenario:   "detection_test_environment.yaml",
		OutputDir:  "screenshots/",
		Resolution: "RES_640X480",
		Format:     "BGR24",
	}, opts)
}

func TestFlags_Shorthand(t *testing.T) {
	parseAndLoad(t, t.TempDir(),
		"-s", "maps/hall.yaml", "-S", "out", "-r", "RES_320X240", "-f", "RGB24", "-w", "-H")

	opts := config.GetCaptureOptions()
	assert.Equal(t, "maps/hall.yaml", opts.Scenario)
	assert.Equal(t, "out", opts.OutputDir)
	assert.Equal(t, "RES_320X240", opts.Resolution)
	assert.Equal(t, "RGB24", opts.Format)
	assert.True(t, opts.Weapon)
	assert.True(t, opts.HUD)

	s, err := config.ResolveCapture(opts, SessionStartTime)
	require.NoError(t, err)
	assert.Equal(t, "out/", s.OutputDir)
	assert.Equal(t, core.FormatRGB24, s.ScreenFormat)
}

func TestFlags_LongNames(t *testing.T) {
	parseAndLoad(t, t.TempDir(), "--weapon", "--hud", "--log-level", "debug")
	assert.True(t, viper.GetBool(config.KeyWeapon))
	assert.True(t, viper.GetBool(config.KeyHUD))
	assert.Equal(t, "debug", viper.GetString("logLevel"))
}

func TestFlags_OverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName),
		[]byte(`{"capture": {"resolution": "RES_800X600", "format": "GRAY8", "hud": true}}`), 0644))

	parseAndLoad(t, dir, "-r", "RES_1024X768")

	opts := config.GetCaptureOptions()
	assert.Equal(t, "RES_1024X768", opts.Resolution, "set flag wins")
	assert.Equal(t, "GRAY8", opts.Format, "unset flag keeps the file value")
	assert.True(t, opts.HUD)
}

func TestFlags_UnknownResolutionFailsResolve(t *testing.T) {
	parseAndLoad(t, t.TempDir(), "-r", "RES_1X1")

	_, err := config.ResolveCapture(config.GetCaptureOptions(), SessionStartTime)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnknownResolution)
	assert.Contains(t, err.Error(), "RES_640X480")
}

func TestParseArgs_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--nope"}},
		{"positional argument", []string{"extra"}},
		{"missing value", []string{"-r"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseArgs(newFlagSet(&bytes.Buffer{}), tt.args)
			assert.Error(t, err)
		})
	}
}

func TestParseArgs_Help(t *testing.T) {
	var out bytes.Buffer
	_, err := parseArgs(newFlagSet(&out), []string{"-h"})
	assert.ErrorIs(t, err, pflag.ErrHelp)
	assert.Contains(t, out.String(), "Usage: labelshot")
	assert.Contains(t, out.String(), "RES_640X480")
	assert.Contains(t, out.String(), "--hud")
}
