package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/labelshot/labelshot/internal/config"
	"github.com/labelshot/labelshot/internal/logging"
	"github.com/labelshot/labelshot/internal/storage"
	"github.com/labelshot/labelshot/internal/storage/memory"
	pgstorage "github.com/labelshot/labelshot/internal/storage/postgres"
	sqlitestorage "github.com/labelshot/labelshot/internal/storage/sqlite"
	wsstorage "github.com/labelshot/labelshot/internal/storage/websocket"
	"github.com/spf13/viper"
)

// createStorageBackend returns the catalog selected by storage.type, or nil
// when the catalog is disabled.
func createStorageBackend(storageCfg config.StorageConfig, logs *logging.SlogManager) (storage.Backend, error) {
	logger := logs.Logger()

	switch strings.ToLower(storageCfg.Type) {
	case "", "none":
		return nil, nil

	case "memory":
		logger.Info("Memory storage backend initialized", "dir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	case "sqlite":
		logger.Info("SQLite storage backend initialized", "path", storageCfg.SQLite.Path)
		return sqlitestorage.New(sqlitestorage.Config{
			Path:   storageCfg.SQLite.Path,
			Logger: logger,
		}), nil

	case "postgres":
		logger.Info("Postgres storage backend initialized", "host", viper.GetString("db.host"))
		return pgstorage.New(pgstorage.Config{
			FallbackPath: storageCfg.SQLite.Path,
			Logger:       logger,
			DBLogger:     logs.Zerolog("database"),
		}), nil

	case "websocket":
		wsURL := httpToWS(viper.GetString("api.serverUrl"))
		logger.Info("WebSocket storage backend initialized", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:    wsURL,
			Secret: viper.GetString("api.apiKey"),
			Logger: logger,
		}), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q (valid: none, memory, sqlite, postgres, websocket)", storageCfg.Type)
	}
}

// startStorage initializes backend and opens the session on it.
func startStorage(backend storage.Backend, logger *slog.Logger) error {
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	if err := backend.StartSession(captureSession); err != nil {
		_ = backend.Close()
		return fmt.Errorf("failed to start storage session: %w", err)
	}
	logger.Info("Storage session started", "session", captureSession.Name)
	return nil
}

// stopStorage ends the session and closes backend, logging failures.
func stopStorage(backend storage.Backend, logger *slog.Logger) {
	if err := backend.EndSession(); err != nil {
		logger.Error("Failed to end storage session", "error", err)
	}
	if exp, ok := backend.(storage.Exporter); ok && exp.ExportedFilePath() != "" {
		logger.Info("Capture manifest exported", "path", exp.ExportedFilePath())
	}
	if err := backend.Close(); err != nil {
		logger.Error("Failed to close storage backend", "error", err)
	}
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
