package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvServer, EnvPollSeconds, EnvTimeoutSeconds, EnvLogLevel, EnvLogFile} {
		t.Setenv(key, "")
	}
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server != defaultServer {
		t.Fatalf("Server = %q, want %q", cfg.Server, defaultServer)
	}
	if cfg.PollInterval() != 3*time.Second {
		t.Fatalf("PollInterval = %v, want 3s", cfg.PollInterval())
	}
	if cfg.Timeout() != 10*time.Second {
		t.Fatalf("Timeout = %v, want 10s", cfg.Timeout())
	}
	if cfg.DefaultMinutes != 120 {
		t.Fatalf("DefaultMinutes = %d, want 120", cfg.DefaultMinutes)
	}
	wantLog, err := expandPath(defaultLogFile)
	if err != nil {
		t.Fatalf("expandPath(defaultLogFile) returned error: %v", err)
	}
	if cfg.LogFile != wantLog {
		t.Fatalf("LogFile = %q, want %q", cfg.LogFile, wantLog)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
server = "  192.168.0.104:5000  "
poll_seconds = 5
timeout_seconds = 4
log_level = " debug "
log_file = "  ~/logs/carrel.log  "
default_minutes = 60
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server != "192.168.0.104:5000" {
		t.Fatalf("Server = %q, want %q", cfg.Server, "192.168.0.104:5000")
	}
	if cfg.PollInterval() != 5*time.Second || cfg.Timeout() != 4*time.Second {
		t.Fatalf("intervals = %v/%v, want 5s/4s", cfg.PollInterval(), cfg.Timeout())
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if !strings.HasPrefix(cfg.LogFile, home) {
		t.Fatalf("LogFile = %q, want it under HOME %q", cfg.LogFile, home)
	}
	if cfg.DefaultMinutes != 60 {
		t.Fatalf("DefaultMinutes = %d, want 60", cfg.DefaultMinutes)
	}
}

func TestLoad_EmptyAndNonPositiveValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
server = "   "
poll_seconds = 0
timeout_seconds = -1
default_minutes = 0
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server != defaultServer {
		t.Fatalf("Server = %q, want %q", cfg.Server, defaultServer)
	}
	if cfg.PollSeconds != defaultPollSeconds || cfg.TimeoutSeconds != defaultTimeoutSeconds {
		t.Fatalf("seconds = %d/%d, want defaults", cfg.PollSeconds, cfg.TimeoutSeconds)
	}
	if cfg.DefaultMinutes != defaultMinutes {
		t.Fatalf("DefaultMinutes = %d, want %d", cfg.DefaultMinutes, defaultMinutes)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
server = "10.0.0.1:5000"
poll_seconds = 9
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv(EnvServer, "10.0.0.2:5000")
	t.Setenv(EnvPollSeconds, "2")
	t.Setenv(EnvTimeoutSeconds, "not-a-number")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server != "10.0.0.2:5000" {
		t.Fatalf("Server = %q, want env value", cfg.Server)
	}
	if cfg.PollSeconds != 2 {
		t.Fatalf("PollSeconds = %d, want 2", cfg.PollSeconds)
	}
	if cfg.TimeoutSeconds != defaultTimeoutSeconds {
		t.Fatalf("TimeoutSeconds = %d, want default for unparsable env", cfg.TimeoutSeconds)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("LogLevel = %q, want warn", cfg.LogLevel)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`server = [`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}

func TestZeroConfigDurationsUseDefaults(t *testing.T) {
	var cfg Config
	if cfg.PollInterval() != 3*time.Second {
		t.Fatalf("PollInterval = %v, want 3s", cfg.PollInterval())
	}
	if cfg.Timeout() != 10*time.Second {
		t.Fatalf("Timeout = %v, want 10s", cfg.Timeout())
	}
}
