package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// AppName names log files and the OTel instrumentation scope.
const AppName = "labelshot"

// Options selects the sinks of a SlogManager.
type Options struct {
	Level string
	// Console receives human-readable output; nil disables it.
	Console io.Writer
	// File receives the same text output as the console; nil disables it.
	File io.Writer
	// Provider bridges records into OpenTelemetry; nil disables it.
	Provider *sdklog.LoggerProvider
	// GraylogAddress is a host:port GELF UDP endpoint; empty disables it.
	GraylogAddress string
	Context        ContextProvider
}

// SlogManager manages slog-based logging with optional OTel and Graylog sinks.
type SlogManager struct {
	logger *slog.Logger
	opts   Options
	gelf   *gelf.Writer

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG", "TRACE":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup builds the logger. Calling it again replaces the previous sinks.
func (m *SlogManager) Setup(opts Options) error {
	lvl := parseLevel(opts.Level)

	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	if opts.Console != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.Console, handlerOpts))
	}

	if opts.File != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.File, handlerOpts))
	}

	var gw *gelf.Writer
	if opts.GraylogAddress != "" {
		var err error
		gw, err = gelf.NewWriter(opts.GraylogAddress)
		if err != nil {
			return fmt.Errorf("connect to graylog at %s: %w", opts.GraylogAddress, err)
		}
		gw.Facility = AppName
		handlers = append(handlers, slog.NewJSONHandler(gw, handlerOpts))
	}

	if opts.Provider != nil {
		handlers = append(handlers, otelslog.NewHandler(AppName, otelslog.WithLoggerProvider(opts.Provider)))
	}

	var handler slog.Handler = NewMultiHandler(handlers...)
	if opts.Context != nil {
		handler = NewContextHandler(handler, opts.Context)
	}

	m.closeGraylog()
	m.gelf = gw
	m.opts = opts
	m.logProvider = opts.Provider
	m.logger = slog.New(handler)
	m.logger.Info("Logging initialized", "level", strings.ToLower(lvl.String()))
	return nil
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

// Close releases the Graylog connection.
func (m *SlogManager) Close() error {
	return m.closeGraylog()
}

func (m *SlogManager) closeGraylog() error {
	if m.gelf == nil {
		return nil
	}
	var w any = m.gelf
	m.gelf = nil
	if c, ok := w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
