package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all driver configuration.
type Config struct {
	Project string        `mapstructure:"project"`
	Paths   PathsConfig   `mapstructure:"paths"`
	Docker  DockerConfig  `mapstructure:"docker"`
	Wait    WaitConfig    `mapstructure:"wait"`
	History HistoryConfig `mapstructure:"history"`
	Log     LogConfig     `mapstructure:"log"`
}

// PathsConfig holds the on-disk layout of the deployment.
type PathsConfig struct {
	// Settings is the key=value settings file (traefikhost, useremail, ...).
	Settings string `mapstructure:"settings"`
	// Compose is the stack definition file.
	Compose string `mapstructure:"compose"`
	// DataRoot is the base directory for created data directories.
	DataRoot string `mapstructure:"data_root"`
	// SecretsDir holds the credential files locked down before startup.
	SecretsDir string `mapstructure:"secrets_dir"`
	// ScriptsDir holds init scripts marked executable before startup.
	ScriptsDir string `mapstructure:"scripts_dir"`
}

// DockerConfig holds Docker client configuration.
type DockerConfig struct {
	Host string `mapstructure:"host"`
}

// WaitConfig bounds the post-start verification poll.
type WaitConfig struct {
	ReadyTimeout time.Duration `mapstructure:"ready_timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// HistoryConfig holds run-history store configuration.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("project", "dataverse")
	v.SetDefault("paths.settings", "./.env")
	v.SetDefault("paths.compose", "./docker-compose.yml")
	v.SetDefault("paths.data_root", ".")
	v.SetDefault("paths.secrets_dir", "./secrets")
	v.SetDefault("paths.scripts_dir", "./init.d")
	v.SetDefault("docker.host", "")
	v.SetDefault("wait.ready_timeout", "2m")
	v.SetDefault("wait.poll_interval", "5s")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.dsn", "./data/dvup-history.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	v.SetEnvPrefix("DVUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
// Diagnostics go to stderr; stdout is reserved for the console reporter.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
