package logging

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Tail returns at most n lines from the end of the log at path, oldest
// first. n <= 0 returns every line. A missing file yields no lines.
func Tail(path string, n int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if n <= 0 {
		var all []string
		for scanner.Scan() {
			all = append(all, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return all, nil
	}

	ring := make([]string, n)
	seen := 0
	for scanner.Scan() {
		ring[seen%n] = scanner.Text()
		seen++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	if seen <= n {
		return ring[:seen], nil
	}
	start := seen % n
	return append(ring[start:], ring[:start]...), nil
}

var levelStyles = map[string]lipgloss.Style{
	"DEBUG": lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")).Bold(true),
	"INFO":  lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F")).Bold(true),
	"WARN":  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true),
	"ERROR": lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
}

var (
	timeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	keyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#87AFFF"))
)

// Pretty renders one JSON log record as "15:04:05 LEVEL message key=value".
// Lines that are not JSON records come back unchanged.
func Pretty(line string, color bool) string {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return line
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(trimmed), &rec); err != nil {
		return line
	}

	paint := func(s lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return s.Render(text)
	}

	stamp := fmt.Sprint(rec[slog.TimeKey])
	if ts, err := time.Parse(time.RFC3339Nano, stamp); err == nil {
		stamp = ts.Local().Format("15:04:05")
	}
	level := strings.ToUpper(fmt.Sprint(rec[slog.LevelKey]))

	parts := []string{paint(timeStyle, stamp), paint(levelStyles[level], padLevel(level)), fmt.Sprint(rec[slog.MessageKey])}

	keys := make([]string, 0, len(rec))
	for k := range rec {
		switch k {
		case slog.TimeKey, slog.LevelKey, slog.MessageKey, slog.SourceKey:
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		parts = append(parts, paint(keyStyle, k)+"="+fmt.Sprint(rec[k]))
	}
	return strings.Join(parts, " ")
}

// PrettyLines applies Pretty to every line.
func PrettyLines(lines []string, color bool) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = Pretty(l, color)
	}
	return out
}

func padLevel(level string) string {
	if len(level) >= 5 {
		return level
	}
	return level + strings.Repeat(" ", 5-len(level))
}
