package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/carrel/internal/seat"
	"github.com/five82/carrel/internal/session"
)

// renderHeader renders the status bar: server, account, environment and
// connection health.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth

	parts := []string{bg.Render("carrel", styles.Logo)}

	if m.session != nil {
		host := strings.TrimPrefix(strings.TrimPrefix(m.session.BaseURL(), "http://"), "https://")
		parts = append(parts, bg.Render(truncate(host, 28), styles.MutedText))
	}
	if user := m.username(); user != "" {
		parts = append(parts, bg.Render("● "+user, styles.SuccessText))
	} else {
		parts = append(parts, bg.Render("○ guest", styles.FaintText))
	}

	switch {
	case m.snapshot.IsOffline():
		parts = append(parts,
			bg.Render(classifyConnectionError(m.snapshot.LastError), styles.DangerText),
			bg.Render("Retrying...", styles.WarningText.Bold(true)))
	case !m.snapshot.HasData && m.snapshot.LastError == nil:
		parts = append(parts, bg.Render("Connecting...", styles.WarningText.Bold(true)))
	default:
		parts = append(parts, m.renderEnv(styles, bg, compact))
	}

	if m.snapshot.HasMineActive {
		parts = append(parts, bg.Render("You have an active reservation", styles.AccentText))
	}

	if ts := m.formatTimestamp(); ts != "" {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	if m.snapshot.LastError != nil && !m.snapshot.IsOffline() {
		limit := 60
		if compact {
			limit = 30
		}
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText)+bg.Space()+
				bg.Render(truncate(m.snapshot.LastError.Error(), limit), styles.DangerText))
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Padding(0, 1).
		Width(m.width).
		Render(bg.Join(parts, "  "))
}

func (m Model) renderEnv(styles Styles, bg BgStyle, compact bool) string {
	env := m.snapshot.Env
	labels := []string{"Temp", "Humidity", "Light"}
	if compact {
		labels = []string{"T", "H", "L"}
	}
	values := []string{env.TemperatureText(), env.HumidityText(), env.IlluminanceText()}

	segments := make([]string, 0, len(values))
	for i, v := range values {
		style := styles.Text
		if v == seat.Placeholder {
			style = styles.FaintText
		}
		segments = append(segments, bg.Render(labels[i], styles.MutedText)+bg.Space()+bg.Render(v, style))
	}
	return bg.Join(segments, "  ")
}

// formatTimestamp formats the last update time with a relative indicator.
func (m Model) formatTimestamp() string {
	last := m.snapshot.LastUpdated
	if last.IsZero() {
		return ""
	}
	since := time.Since(last)
	out := last.Format("15:04:05")
	switch {
	case since < time.Minute:
		out += " (now)"
	case since < time.Hour:
		out += fmt.Sprintf(" (%dm ago)", int(since.Minutes()))
	default:
		out += fmt.Sprintf(" (%dh ago)", int(since.Hours()))
	}
	return out
}

// classifyConnectionError returns a short label for a poll failure.
func classifyConnectionError(err error) string {
	var (
		network *session.NetworkError
		status  *session.StatusError
		parse   *seat.ParseError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &network):
		msg := network.Err.Error()
		switch {
		case strings.Contains(msg, "connection refused"):
			return "OFFLINE"
		case strings.Contains(msg, "no such host"):
			return "HOST NOT FOUND"
		case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
			return "TIMEOUT"
		default:
			return "NETWORK ERROR"
		}
	case errors.As(err, &status):
		return fmt.Sprintf("HTTP %d", status.Code)
	case errors.As(err, &parse):
		return "BAD RESPONSE"
	default:
		return "ERROR"
	}
}

// renderCommandBar renders the key hints for the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type hint struct{ key, desc string }
	var hints []hint

	switch m.view {
	case ViewLogin:
		signup := "Sign up"
		if m.signingUp {
			signup = "Log in"
		}
		hints = []hint{{"tab", "Next"}, {"enter", "Submit"}, {"ctrl+r", signup}, {"esc", "Back"}}
	case ViewReserve:
		hints = []hint{{"j/k", "Seat"}, {"h/l", "Duration"}, {"enter", "Reserve"}, {"esc", "Back"}}
	case ViewProfile:
		hints = []hint{{"enter", "Bind card"}, {"esc", "Back"}}
	default:
		account := "Log in"
		if m.loggedIn() {
			account = "Log out"
		}
		hints = []hint{
			{"hjkl", "Move"},
			{"r", "Reserve"},
			{"c", "Cancel"},
			{"R", "Refresh"},
			{"p", "Profile"},
			{"L", account},
			{"?", "Help"},
			{"q", "Quit"},
		}
	}

	colon := bg.Render(":", styles.FaintText)
	segments := make([]string, 0, len(hints)+2)
	for _, h := range hints {
		segments = append(segments, bg.Render(h.key, styles.AccentText)+colon+bg.Render(h.desc, styles.MutedText))
	}
	if m.view == ViewSeats && m.sync != nil && !m.sync.Running() {
		segments = append(segments, bg.Render("paused", styles.WarningText))
	}
	segments = append(segments, bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(bg.Join(segments, "  "))
}
