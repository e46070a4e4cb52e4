// Command labelshot opens an interactive scenario window and saves a raw
// screenshot, a labelled copy and a JSON object list every time the player
// presses USE.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/labelshot/labelshot/internal/capture"
	"github.com/labelshot/labelshot/internal/config"
	"github.com/labelshot/labelshot/internal/engine/window"
	"github.com/labelshot/labelshot/internal/imaging"
	"github.com/labelshot/labelshot/internal/influx"
	"github.com/labelshot/labelshot/internal/logging"
	intOtel "github.com/labelshot/labelshot/internal/otel"
	"github.com/labelshot/labelshot/internal/session"
	"github.com/labelshot/labelshot/internal/storage"
	"github.com/labelshot/labelshot/pkg/core"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	ExtensionName string = "labelshot"
)

var (
	LogFilePath string
	LogFile     *os.File
)

var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime time.Time = time.Now()

	// captureSession is resolved from flags and config before anything starts
	captureSession *core.Session

	// activeDriver feeds the capture count into every log record
	activeDriver atomic.Pointer[session.Driver]
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		if Logger != nil {
			Logger.Error("Session failed", "error", err)
		} else {
			fmt.Fprintf(os.Stderr, "%s: %v\n", ExtensionName, err)
		}
		shutdownLogging()
		os.Exit(1)
	}
	shutdownLogging()
}

func run(args []string) error {
	fs := newFlagSet(os.Stderr)
	cli, err := parseArgs(fs, args)
	if err != nil {
		return err
	}

	// console only until the config is known
	SlogManager = logging.NewSlogManager()
	if err := SlogManager.Setup(logging.Options{Level: cli.LogLevel, Console: os.Stderr}); err != nil {
		return err
	}
	Logger = SlogManager.Logger()
	Logger.Info("Starting up...", "version", CurrentVersion, "build", BuildDate)

	if err := loadConfig(cli.ConfigDir, fs); err != nil {
		return err
	}

	captureSession, err = config.ResolveCapture(config.GetCaptureOptions(), SessionStartTime)
	if err != nil {
		return err
	}
	captureSession.Name = capture.Timestamp(SessionStartTime)

	setupLogging()

	writer, err := newWriter()
	if err != nil {
		return err
	}

	var sinks []session.Sink

	if viper.GetBool("influx.enabled") {
		if m := connectInflux(); m != nil {
			sinks = append(sinks, m)
			defer func() {
				if err := m.Close(); err != nil {
					Logger.Error("Failed to close InfluxDB", "error", err)
				}
			}()
		}
	}

	backend, err := createStorageBackend(config.GetStorageConfig(), SlogManager)
	if err != nil {
		return err
	}
	if backend != nil {
		if err := startStorage(backend, Logger); err != nil {
			Logger.Error("Capture catalog disabled", "error", err)
		} else {
			sinks = append(sinks, backend)
			defer stopStorage(backend, Logger)
		}
	}

	return runSession(writer, sinks)
}

// loadConfig reads the config file and lets set flags override it.
func loadConfig(dir string, fs *pflag.FlagSet) error {
	err := config.Load(dir)
	switch {
	case err == nil:
		Logger.Info("Loaded config", "path", viper.ConfigFileUsed())
	case config.IsNotFound(err):
		Logger.Warn("Failed to load config, using defaults!", "dir", dir, "error", err)
	default:
		return err
	}
	return bindFlags(fs)
}

// setupLogging adds the log file, Graylog and OTel sinks the config asks for.
func setupLogging() {
	var err error

	LogFilePath = logging.LogFilePath(viper.GetString("logsDir"), ExtensionName, SessionStartTime)
	LogFile, err = logging.OpenLogFile(LogFilePath)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
	}

	// a nil *os.File must not end up in an io.Writer
	var fileWriter io.Writer
	if LogFile != nil {
		fileWriter = LogFile
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:        otelCfg.Enabled,
			ServiceName:    otelCfg.ServiceName,
			BatchTimeout:   otelCfg.BatchTimeout,
			LogWriter:      fileWriter,
			MetricWriter:   fileWriter,
			MetricInterval: otelCfg.MetricInterval,
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
			OTelProvider = nil
		} else {
			Logger.Info("OTel provider initialized", "file", LogFilePath, "endpoint", otelCfg.Endpoint)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}

	opts := logging.Options{
		Level:    viper.GetString("logLevel"),
		Console:  os.Stderr,
		File:     fileWriter,
		Provider: otelLogProvider,
		Context:  logContext,
	}
	if gl := config.GetGraylogConfig(); gl.Enabled {
		opts.GraylogAddress = gl.Address
	}

	if err := SlogManager.Setup(opts); err != nil {
		Logger.Error("Failed to set up Graylog sink", "error", err)
		opts.GraylogAddress = ""
		_ = SlogManager.Setup(opts)
	}
	Logger = SlogManager.Logger()
	if LogFile != nil {
		Logger.Info("Logging to file", "path", LogFilePath)
	}
}

// logContext is attached to every log record once the session is known.
func logContext() []slog.Attr {
	attrs := []slog.Attr{slog.String("session", captureSession.Name)}
	if d := activeDriver.Load(); d != nil {
		attrs = append(attrs, slog.Int64("captures", d.Captures()))
	}
	return attrs
}

// newWriter builds the snapshot writer from the capture.* keys.
func newWriter() (*capture.Writer, error) {
	capCfg := config.GetCaptureConfig()

	policy, err := capture.ParsePolicy(capCfg.CollisionPolicy)
	if err != nil {
		return nil, err
	}
	encoder, err := imaging.NewEncoder(capCfg.Encoder)
	if err != nil {
		return nil, err
	}

	var meter metric.Meter
	if OTelProvider != nil {
		meter = OTelProvider.Meter(capture.InstrumentationName)
	}
	metrics, err := capture.NewMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to register capture metrics: %w", err)
	}

	return capture.NewWriter(capture.Options{
		OutputDir: captureSession.OutputDir,
		Encoder:   encoder,
		Policy:    policy,
		Logger:    Logger,
		Metrics:   metrics,
	}), nil
}

// connectInflux returns a connected manager, or nil when even the backup
// file could not be opened.
func connectInflux() *influx.Manager {
	backupPath := filepath.Join(
		viper.GetString("logsDir"),
		fmt.Sprintf("%s_influx_%s.gz", ExtensionName, SessionStartTime.Format("20060102_150405")),
	)
	m := influx.NewManager(SlogManager.Zerolog("influx"), backupPath, captureSession)
	if err := m.Connect(); err != nil {
		Logger.Error("Failed to set up InfluxDB", "error", err)
		return nil
	}
	return m
}

// runSession drives the session on a goroutine while the window owns the
// main goroutine, then waits for both.
func runSession(writer *capture.Writer, sinks []session.Sink) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessCfg := config.GetSessionConfig()
	capCfg := config.GetCaptureConfig()

	game := window.New(fmt.Sprintf("%s - %s", ExtensionName, captureSession.ScenarioPath), sessCfg.TPS, Logger)
	driver := session.NewDriver(game, captureSession, writer, session.Options{
		Cooldown:   capCfg.Cooldown,
		CloseDelay: sessCfg.CloseDelay,
		Logger:     Logger,
		Sinks:      sinks,
	})
	activeDriver.Store(driver)

	errCh := make(chan error, 1)
	go func() {
		err := driver.Run(ctx)
		// unblocks the window when Init failed or the loop was interrupted
		_ = game.Close()
		errCh <- err
	}()

	winErr := game.Run(ctx)
	if winErr != nil {
		Logger.Error("Window stopped with an error", "error", winErr)
		_ = game.Close()
	}
	runErr := <-errCh

	Logger.Info("Session complete", "captures", driver.Captures(), "output", writer.Dir())
	return errors.Join(runErr, winErr)
}

// shutdownLogging flushes telemetry and closes the log sinks.
func shutdownLogging() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "%s: otel shutdown: %v\n", ExtensionName, err)
		}
	}
	if SlogManager != nil {
		_ = SlogManager.Close()
	}
	if LogFile != nil {
		_ = LogFile.Close()
	}
}

// Catalog backends receive captures as session sinks.
var _ session.Sink = storage.Backend(nil)
