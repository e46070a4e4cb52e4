package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// zerologLevel mirrors parseLevel for zerolog, which also knows TRACE.
func zerologLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Zerolog returns a logger for the storage and telemetry managers. It writes
// console-formatted lines to the same console and file as the slog logger.
func (m *SlogManager) Zerolog(component string) zerolog.Logger {
	var writers []io.Writer
	if m.opts.Console != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        m.opts.Console,
			TimeFormat: time.RFC3339,
		})
	}
	if m.opts.File != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        m.opts.File,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}
	if len(writers) == 0 {
		return zerolog.Nop()
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(zerologLevel(m.opts.Level)).
		With().Timestamp().Str("component", component).Logger()
}
