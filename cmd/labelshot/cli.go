package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/labelshot/labelshot/internal/config"
	"github.com/labelshot/labelshot/pkg/core"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// cliArgs holds the flags that are not config keys.
type cliArgs struct {
	ConfigDir string
	LogLevel  string
}

// newFlagSet declares every command line flag.
func newFlagSet(out io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(ExtensionName, pflag.ContinueOnError)
	fs.SetOutput(out)

	fs.StringP("scenario", "s", config.DefaultScenario, "scenario file to load")
	fs.StringP("output", "S", config.DefaultOutputDir, "directory the captures are written to")
	fs.StringP("resolution", "r", config.DefaultResolution,
		"screen resolution, one of: "+strings.Join(core.ResolutionNames(), ", "))
	fs.StringP("format", "f", config.DefaultFormat,
		"screen format, one of: "+strings.Join(core.ScreenFormatNames(), ", "))
	fs.BoolP("weapon", "w", false, "render the player weapon")
	fs.BoolP("hud", "H", false, "render the HUD")

	fs.String("config-dir", ".", "directory holding "+config.FileName)
	fs.String("log-level", "", "log level override (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Fprintf(out, "Usage: %s [flags]\n\nPress USE in the window to save a labelled capture.\n\n", ExtensionName)
		fs.PrintDefaults()
	}
	return fs
}

// bindFlags makes flags override config file values. Only flags the user
// set take precedence; the rest fall through to the file and defaults.
func bindFlags(fs *pflag.FlagSet) error {
	bindings := map[string]string{
		"scenario":   config.KeyScenario,
		"output":     config.KeyOutputDir,
		"resolution": config.KeyResolution,
		"format":     config.KeyFormat,
		"weapon":     config.KeyWeapon,
		"hud":        config.KeyHUD,
		"log-level":  "logLevel",
	}
	for flag, key := range bindings {
		f := fs.Lookup(flag)
		if f == nil {
			return fmt.Errorf("unknown flag %q", flag)
		}
		if !f.Changed {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// parseArgs parses args into fs and returns the non-config flags.
func parseArgs(fs *pflag.FlagSet, args []string) (cliArgs, error) {
	if err := fs.Parse(args); err != nil {
		return cliArgs{}, err
	}
	if fs.NArg() > 0 {
		return cliArgs{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	dir, _ := fs.GetString("config-dir")
	level, _ := fs.GetString("log-level")
	return cliArgs{ConfigDir: dir, LogLevel: level}, nil
}
