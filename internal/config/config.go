package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds carrel's settings after defaults and overrides are applied.
type Config struct {
	Server         string
	PollSeconds    int
	TimeoutSeconds int
	LogLevel       string
	LogFile        string
	DefaultMinutes int
}

const (
	defaultConfigPath     = "~/.config/carrel/config.toml"
	defaultServer         = "127.0.0.1:5000"
	defaultPollSeconds    = 3
	defaultTimeoutSeconds = 10
	defaultLogLevel       = "info"
	defaultLogFile        = "~/.local/share/carrel/carrel.log"
	defaultMinutes        = 120
)

// Environment variables that override the file.
const (
	EnvServer         = "CARREL_SERVER"
	EnvPollSeconds    = "CARREL_POLL_SECONDS"
	EnvTimeoutSeconds = "CARREL_TIMEOUT_SECONDS"
	EnvLogLevel       = "CARREL_LOG_LEVEL"
	EnvLogFile        = "CARREL_LOG_FILE"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server:         defaultServer,
		PollSeconds:    defaultPollSeconds,
		TimeoutSeconds: defaultTimeoutSeconds,
		LogLevel:       defaultLogLevel,
		LogFile:        mustExpand(defaultLogFile),
		DefaultMinutes: defaultMinutes,
	}
}

// Load reads the config file at path (or the default location), falling back
// to defaults when it is missing, then applies environment overrides. A .env
// file in the working directory is loaded first when present; variables
// already set in the process win.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if err := cfg.readFile(resolved); err != nil {
		return Config{}, err
	}
	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		Server         string `toml:"server"`
		PollSeconds    int    `toml:"poll_seconds"`
		TimeoutSeconds int    `toml:"timeout_seconds"`
		LogLevel       string `toml:"log_level"`
		LogFile        string `toml:"log_file"`
		DefaultMinutes int    `toml:"default_minutes"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	c.Server = strings.TrimSpace(raw.Server)
	c.PollSeconds = raw.PollSeconds
	c.TimeoutSeconds = raw.TimeoutSeconds
	c.LogLevel = strings.TrimSpace(raw.LogLevel)
	c.LogFile = strings.TrimSpace(raw.LogFile)
	c.DefaultMinutes = raw.DefaultMinutes
	return nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvServer)); v != "" {
		c.Server = v
	}
	if n, ok := envInt(EnvPollSeconds); ok {
		c.PollSeconds = n
	}
	if n, ok := envInt(EnvTimeoutSeconds); ok {
		c.TimeoutSeconds = n
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		c.LogFile = v
	}
}

func (c *Config) normalize() {
	if c.Server == "" {
		c.Server = defaultServer
	}
	if c.PollSeconds <= 0 {
		c.PollSeconds = defaultPollSeconds
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.LogFile == "" {
		c.LogFile = defaultLogFile
	}
	c.LogFile = mustExpand(c.LogFile)
	if c.DefaultMinutes <= 0 {
		c.DefaultMinutes = defaultMinutes
	}
}

// PollInterval returns the refresh cadence.
func (c Config) PollInterval() time.Duration {
	if c.PollSeconds <= 0 {
		return defaultPollSeconds * time.Second
	}
	return time.Duration(c.PollSeconds) * time.Second
}

// Timeout returns the per-request transport timeout.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultTimeoutSeconds * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
