// Package config provides configuration management for the size-analysis tools.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/size-analysis/pkg/errors"
)

// EnvPrefix prefixes environment overrides, e.g. SIZE_ANALYSIS_SERVER_ADDR.
const EnvPrefix = "SIZE_ANALYSIS"

// Config holds all configuration for the application.
type Config struct {
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Tape     TapeConfig     `mapstructure:"tape"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

// AnalysisConfig holds the defaults applied to module analyses.
type AnalysisConfig struct {
	Version          string `mapstructure:"version"`
	MaxItems         uint32 `mapstructure:"max_items"` // 0 means unlimited
	ShowDataSegments bool   `mapstructure:"show_data_segments"`
	Format           string `mapstructure:"format"` // auto, wasm, json or yaml
	Pretty           bool   `mapstructure:"pretty"`
	IncludeSummary   bool   `mapstructure:"include_summary"`
	MaxInputBytes    int64  `mapstructure:"max_input_bytes"`
	Concurrency      int    `mapstructure:"concurrency"` // batch CLI analyses in flight
	CompressReports  bool   `mapstructure:"compress_reports"`
}

// TapeConfig holds the defaults applied to tape conversions.
type TapeConfig struct {
	DuplicateKeys string `mapstructure:"duplicate_keys"`
	TypeNarrowing string `mapstructure:"type_narrowing"`
	Pretty        bool   `mapstructure:"pretty"`
}

// StorageConfig holds report storage configuration.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`     // e.g., "myqcloud.com"
	Scheme    string `mapstructure:"scheme"`     // e.g., "https" or "http"
	LocalPath string `mapstructure:"local_path"` // for local storage
}

// DatabaseConfig holds run history database configuration.
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Type     string `mapstructure:"type"` // sqlite, postgres or mysql
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
	Path     string `mapstructure:"path"` // sqlite file
}

// ServerConfig holds HTTP service configuration.
type ServerConfig struct {
	Addr         string `mapstructure:"addr"`
	MaxBodyBytes int64  `mapstructure:"max_body_bytes"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"` // json or text
}

// Load reads configuration from the specified file path. A missing file
// leaves the defaults in place.
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/size-analysis")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !(errors.As(err, &notFound) || os.IsNotExist(err)) {
			return nil, errors.Wrap(errors.CodeConfigError, "failed to read config file", err)
		}
	}

	return unmarshal(v)
}

// LoadFromReader loads configuration from an in-memory document.
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := newViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, errors.Wrap(errors.CodeConfigError, "failed to read config", err)
	}
	return unmarshal(v)
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg, err := unmarshal(newViper())
	if err != nil {
		// The defaults are static and always valid.
		panic(err)
	}
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.CodeConfigError, "failed to unmarshal config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Analysis defaults
	v.SetDefault("analysis.version", "1.0.0")
	v.SetDefault("analysis.max_items", 0)
	v.SetDefault("analysis.show_data_segments", true)
	v.SetDefault("analysis.format", "auto")
	v.SetDefault("analysis.pretty", false)
	v.SetDefault("analysis.include_summary", false)
	v.SetDefault("analysis.max_input_bytes", 0)
	v.SetDefault("analysis.concurrency", 4)
	v.SetDefault("analysis.compress_reports", false)

	// Tape defaults
	v.SetDefault("tape.duplicate_keys", "preserve")
	v.SetDefault("tape.type_narrowing", "all")
	v.SetDefault("tape.pretty", true)

	// Storage defaults
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./storage")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.path", "./size-analysis.db")

	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_body_bytes", 64<<20)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "")
	v.SetDefault("log.format", "text")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Analysis.Format {
	case "", "auto", "wasm", "json", "yaml", "yml":
	default:
		return errors.Newf(errors.CodeConfigError, "unsupported analysis format: %s", c.Analysis.Format)
	}
	if c.Analysis.MaxInputBytes < 0 {
		return errors.New(errors.CodeConfigError, "max input bytes must not be negative")
	}
	if c.Analysis.Concurrency < 1 {
		return errors.New(errors.CodeConfigError, "concurrency must be at least 1")
	}

	switch c.Storage.Type {
	case "local", "cos":
	default:
		return errors.Newf(errors.CodeConfigError, "unsupported storage type: %s", c.Storage.Type)
	}

	if c.Database.Enabled {
		switch c.Database.Type {
		case "sqlite":
			if c.Database.Path == "" {
				return errors.New(errors.CodeConfigError, "sqlite database path is required")
			}
		case "postgres", "mysql":
			if c.Database.Host == "" {
				return errors.New(errors.CodeConfigError, "database host is required")
			}
		default:
			return errors.Newf(errors.CodeConfigError, "unsupported database type: %s", c.Database.Type)
		}
	}

	if c.Server.MaxBodyBytes < 0 {
		return errors.New(errors.CodeConfigError, "max body bytes must not be negative")
	}
	return nil
}

// DSN returns a human-readable description of the database target without
// credentials.
func (c DatabaseConfig) DSN() string {
	if c.Type == "sqlite" {
		return "sqlite:" + c.Path
	}
	return fmt.Sprintf("%s://%s:%d/%s", c.Type, c.Host, c.Port, c.Database)
}
