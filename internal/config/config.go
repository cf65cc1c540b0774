package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.trai.ch/zerr"
)

// ErrInvalidValue is returned when a setting holds a value outside its domain.
var ErrInvalidValue = zerr.New("invalid configuration value")

// Config holds all configurable residue settings.
type Config struct {
	DataDir       string        `mapstructure:"data_dir"` // empty means the XDG data directory
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	UninstallMode string        `mapstructure:"uninstall_mode"` // "trash" | "permanent"
	LogLevel      string        `mapstructure:"log_level"`
	LogFormat     string        `mapstructure:"log_format"` // "text" | "json"
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		FlushInterval: 5 * time.Second,
		UninstallMode: "trash",
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// Dir returns the residue config directory, ~/.config/residue unless
// XDG_CONFIG_HOME is set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "residue"), nil
}

// GlobalPath returns the path of the user config file.
func GlobalPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadGlobal reads the user config file.
// Returns defaults (plus environment overrides) if the file is absent.
func LoadGlobal() (*Config, error) {
	path, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Load reads the JSON config file at path. Every key can be overridden by a
// RESIDUE_<KEY> environment variable, e.g. RESIDUE_UNINSTALL_MODE.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("RESIDUE")
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("flush_interval", d.FlushInterval.String())
	v.SetDefault("uninstall_mode", d.UninstallMode)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Validate checks every enumerated setting.
func (c Config) Validate() error {
	if c.FlushInterval <= 0 {
		return zerr.With(ErrInvalidValue, "flush_interval", c.FlushInterval.String())
	}
	if !oneOf(c.UninstallMode, "trash", "permanent") {
		return zerr.With(ErrInvalidValue, "uninstall_mode", c.UninstallMode)
	}
	if !oneOf(c.LogLevel, "debug", "info", "warn", "error") {
		return zerr.With(ErrInvalidValue, "log_level", c.LogLevel)
	}
	if !oneOf(c.LogFormat, "text", "json") {
		return zerr.With(ErrInvalidValue, "log_format", c.LogFormat)
	}
	return nil
}

func oneOf(s string, allowed ...string) bool {
	s = strings.ToLower(s)
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}

// Merge combines a loaded config with command-line overrides, the overrides
// taking precedence. Empty or zero fields fall back to base, then defaults.
func Merge(base, overrides *Config) Config {
	result := Defaults()

	for _, c := range []*Config{base, overrides} {
		if c == nil {
			continue
		}
		if c.DataDir != "" {
			result.DataDir = c.DataDir
		}
		if c.FlushInterval > 0 {
			result.FlushInterval = c.FlushInterval
		}
		if c.UninstallMode != "" {
			result.UninstallMode = c.UninstallMode
		}
		if c.LogLevel != "" {
			result.LogLevel = c.LogLevel
		}
		if c.LogFormat != "" {
			result.LogFormat = c.LogFormat
		}
	}

	return result
}

// fileConfig is the on-disk shape written by Save.
type fileConfig struct {
	DataDir       string `json:"data_dir,omitempty"`
	FlushInterval string `json:"flush_interval"`
	UninstallMode string `json:"uninstall_mode"`
	LogLevel      string `json:"log_level"`
	LogFormat     string `json:"log_format"`
}

// Save writes cfg to path, creating the directory if needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(fileConfig{
		DataDir:       cfg.DataDir,
		FlushInterval: cfg.FlushInterval.String(),
		UninstallMode: cfg.UninstallMode,
		LogLevel:      cfg.LogLevel,
		LogFormat:     cfg.LogFormat,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
