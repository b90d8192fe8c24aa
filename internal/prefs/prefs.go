// Package prefs handles carrel's persisted user preferences.
// Preferences are stored in ~/.config/carrel/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds what carrel remembers between runs.
type Prefs struct {
	Theme        string `toml:"theme"`
	LastServer   string `toml:"last_server"`
	LastUsername string `toml:"last_username"`
	Role         string `toml:"role"`
	// PendingSeat is a seat the user chose before logging in. It is consumed
	// by the first reserve attempt after login.
	PendingSeat string `toml:"pending_seat"`
}

const (
	defaultPrefsPath = "~/.config/carrel/prefs.toml"
	defaultTheme     = "Dracula"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from the given path, falling back to defaults if missing.
func Load(path string) (Prefs, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Prefs{Theme: defaultTheme}, nil
	}

	prefs := Prefs{Theme: defaultTheme}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, nil
		}
		return prefs, nil // Graceful degradation
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return prefs, nil // Graceful degradation
	}

	if err := toml.Unmarshal(bytes, &prefs); err != nil {
		return Prefs{Theme: defaultTheme}, nil // Graceful degradation
	}

	prefs.LastServer = strings.TrimSpace(prefs.LastServer)
	prefs.LastUsername = strings.TrimSpace(prefs.LastUsername)
	prefs.PendingSeat = strings.TrimSpace(prefs.PendingSeat)
	if strings.TrimSpace(prefs.Theme) == "" {
		prefs.Theme = defaultTheme
	}

	return prefs, nil
}

// Save writes preferences to the given path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, bytes, 0o600); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}

	return nil
}

// RememberLogin records the server and account of a successful login.
func (p *Prefs) RememberLogin(server, username, role string) {
	p.LastServer = strings.TrimSpace(server)
	p.LastUsername = strings.TrimSpace(username)
	p.Role = strings.TrimSpace(role)
}

// Forget drops the remembered account but keeps the server.
func (p *Prefs) Forget() {
	p.LastUsername = ""
	p.Role = ""
	p.PendingSeat = ""
}

// SetPendingSeat records the seat to reserve once logged in.
func (p *Prefs) SetPendingSeat(seatID string) {
	p.PendingSeat = strings.TrimSpace(seatID)
}

// TakePendingSeat returns the pending seat and clears it, so the intent is
// acted on at most once.
func (p *Prefs) TakePendingSeat() (string, bool) {
	seatID := p.PendingSeat
	p.PendingSeat = ""
	return seatID, seatID != ""
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
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
