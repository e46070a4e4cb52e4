package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/labelshot/labelshot/pkg/core"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "labelshot.cfg.json"

// Keys bound to command line flags.
const (
	KeyScenario   = "capture.scenario"
	KeyOutputDir  = "capture.outputDir"
	KeyResolution = "capture.resolution"
	KeyFormat     = "capture.format"
	KeyWeapon     = "capture.weapon"
	KeyHUD        = "capture.hud"
)

// Flag defaults.
const (
	DefaultScenario   = "detection_test_environment.yaml"
	DefaultOutputDir  = "screenshots/"
	DefaultResolution = "RES_640X480"
	DefaultFormat     = "BGR24"
)

// CaptureOptions are the unresolved, by-name session options.
type CaptureOptions struct {
	Scenario   string
	OutputDir  string
	Resolution string
	Format     string
	Weapon     bool
	HUD        bool
}

// CaptureConfig holds snapshot writer settings
type CaptureConfig struct {
	Cooldown        time.Duration `json:"cooldown" mapstructure:"cooldown"`
	CollisionPolicy string        `json:"collisionPolicy" mapstructure:"collisionPolicy"`
	Encoder         string        `json:"encoder" mapstructure:"encoder"`
}

// SessionConfig holds session driver settings
type SessionConfig struct {
	CloseDelay time.Duration `json:"closeDelay" mapstructure:"closeDelay"`
	TPS        int           `json:"tps" mapstructure:"tps"`
}

// MemoryConfig holds in-memory/JSON catalog backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite catalog backend settings
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// StorageConfig selects and configures the capture catalog
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled        bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName    string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout   time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	MetricInterval time.Duration `json:"metricInterval" mapstructure:"metricInterval"`
	Endpoint       string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `json:"insecure" mapstructure:"insecure"`
}

// GraylogConfig holds GELF sink settings
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// SetDefaults registers every default value.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./labelshotlogs")

	viper.SetDefault(KeyScenario, DefaultScenario)
	viper.SetDefault(KeyOutputDir, DefaultOutputDir)
	viper.SetDefault(KeyResolution, DefaultResolution)
	viper.SetDefault(KeyFormat, DefaultFormat)
	viper.SetDefault(KeyWeapon, false)
	viper.SetDefault(KeyHUD, false)

	viper.SetDefault("capture.cooldown", "28ms")
	viper.SetDefault("capture.collisionPolicy", "suffix")
	viper.SetDefault("capture.encoder", "png")

	viper.SetDefault("session.closeDelay", "2s")
	viper.SetDefault("session.tps", 35)

	viper.SetDefault("api.serverUrl", "ws://localhost:5000/api/v1/stream")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "labelshot")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "labelshot")
	viper.SetDefault("influx.bucket", "captures")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("storage.type", "none")
	viper.SetDefault("storage.memory.outputDir", "./manifests")
	viper.SetDefault("storage.memory.compressOutput", false)
	viper.SetDefault("storage.sqlite.path", "./labelshot.db")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "labelshot")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.metricInterval", "30s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// Load sets default values and reads the JSON config file in configDir.
// Defaults stay in effect when the file is missing; the returned error then
// satisfies IsNotFound.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// IsNotFound reports whether err means no config file was present.
func IsNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound)
}

// GetCaptureOptions returns the session options from flags, file and defaults.
func GetCaptureOptions() CaptureOptions {
	return CaptureOptions{
		Scenario:   viper.GetString(KeyScenario),
		OutputDir:  viper.GetString(KeyOutputDir),
		Resolution: viper.GetString(KeyResolution),
		Format:     viper.GetString(KeyFormat),
		Weapon:     viper.GetBool(KeyWeapon),
		HUD:        viper.GetBool(KeyHUD),
	}
}

// ResolveCapture turns by-name options into a session. Unknown resolution or
// format names fail with the list of valid names.
func ResolveCapture(opts CaptureOptions, now time.Time) (*core.Session, error) {
	res, err := core.ParseResolution(opts.Resolution)
	if err != nil {
		return nil, err
	}
	format, err := core.ParseScreenFormat(opts.Format)
	if err != nil {
		return nil, err
	}

	scenario := opts.Scenario
	if scenario == "" {
		scenario = DefaultScenario
	}
	dir := opts.OutputDir
	if dir == "" {
		dir = DefaultOutputDir
	}
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}

	return &core.Session{
		ScenarioPath: scenario,
		OutputDir:    dir,
		Resolution:   res,
		ScreenFormat: format,
		RenderWeapon: opts.Weapon,
		RenderHUD:    opts.HUD,
		StartTime:    now,
	}, nil
}

// GetCaptureConfig returns the snapshot writer settings.
func GetCaptureConfig() CaptureConfig {
	return CaptureConfig{
		Cooldown:        viper.GetDuration("capture.cooldown"),
		CollisionPolicy: viper.GetString("capture.collisionPolicy"),
		Encoder:         viper.GetString("capture.encoder"),
	}
}

// GetSessionConfig returns the session driver settings.
func GetSessionConfig() SessionConfig {
	return SessionConfig{
		CloseDelay: viper.GetDuration("session.closeDelay"),
		TPS:        viper.GetInt("session.tps"),
	}
}

// GetStorageConfig returns the capture catalog settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path: viper.GetString("storage.sqlite.path"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:        viper.GetBool("otel.enabled"),
		ServiceName:    viper.GetString("otel.serviceName"),
		BatchTimeout:   viper.GetDuration("otel.batchTimeout"),
		MetricInterval: viper.GetDuration("otel.metricInterval"),
		Endpoint:       viper.GetString("otel.endpoint"),
		Insecure:       viper.GetBool("otel.insecure"),
	}
}

// GetGraylogConfig returns the GELF sink settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}
