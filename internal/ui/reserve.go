package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/carrel/internal/command"
	"github.com/five82/carrel/internal/session"
)

// openReserve fills the picker with the free seats and consumes the pending
// seat, preselecting it when it is still free.
func (m *Model) openReserve() {
	m.choices = m.snapshot.FreeSeats()
	m.choiceIdx = 0

	if pending, ok := m.prefs.TakePendingSeat(); ok {
		m.savePrefs()
		found := false
		for i, id := range m.choices {
			if id == pending {
				m.choiceIdx = i
				found = true
				break
			}
		}
		if !found {
			m.notify(fmt.Sprintf("Seat %s is no longer free.", pending))
		}
	}
	m.setView(ViewReserve)
}

func durationIndex(minutes int) int {
	fallback := 0
	for i, d := range command.DurationChoices {
		if d == minutes {
			return i
		}
		if d == command.DefaultMinutes {
			fallback = i
		}
	}
	return fallback
}

func (m Model) selectedMinutes() int {
	if m.durationIdx < 0 || m.durationIdx >= len(command.DurationChoices) {
		return command.DefaultMinutes
	}
	return command.DurationChoices[m.durationIdx]
}

// handleReserveKey processes keyboard input for the reserve picker.
func (m Model) handleReserveKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(command.DurationChoices)
	switch {
	case key.Matches(msg, m.keys.Back), msg.String() == "q":
		m.setView(ViewSeats)
	case key.Matches(msg, m.keys.Up):
		if m.choiceIdx > 0 {
			m.choiceIdx--
		}
	case key.Matches(msg, m.keys.Down):
		if m.choiceIdx < len(m.choices)-1 {
			m.choiceIdx++
		}
	case key.Matches(msg, m.keys.Left):
		m.durationIdx = (m.durationIdx - 1 + n) % n
	case key.Matches(msg, m.keys.Right), key.Matches(msg, m.keys.NextField):
		m.durationIdx = (m.durationIdx + 1) % n
	case key.Matches(msg, m.keys.Confirm):
		return m.submitReserve()
	}
	return m, nil
}

func (m Model) submitReserve() (tea.Model, tea.Cmd) {
	if m.busy || m.commands == nil || len(m.choices) == 0 {
		return m, nil
	}
	seatID := m.choices[m.choiceIdx]
	minutes := m.selectedMinutes()
	m.busy = true
	ctx, commands := m.ctx, m.commands
	return m, func() tea.Msg {
		return reserveResultMsg{seatID: seatID, minutes: minutes, err: commands.Reserve(ctx, seatID, minutes)}
	}
}

func (m Model) handleReserveResult(msg reserveResultMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	switch {
	case msg.err == nil:
		m.notify(fmt.Sprintf("Reserved %s for %d minutes.", msg.seatID, msg.minutes))
		m.setView(ViewSeats)
		return m, fetchSnapshotCmd(m.store)
	case errors.Is(msg.err, command.ErrBindingRequired):
		m.notify(command.Describe(msg.err))
		m.setView(ViewProfile)
		return m, m.loadProfileCmd()
	case errors.Is(msg.err, command.ErrAlreadyReserved):
		m.notify(command.Describe(msg.err))
		m.setView(ViewSeats)
		return m, fetchSnapshotCmd(m.store)
	case errors.Is(msg.err, session.ErrUnauthorized):
		m.notify(command.Describe(msg.err))
		m.prefs.SetPendingSeat(msg.seatID)
		m.savePrefs()
		m.setView(ViewLogin)
		return m, nil
	default:
		m.notify(fmt.Sprintf("Reserve %s failed: %s", msg.seatID, command.Describe(msg.err)))
		return m, nil
	}
}

// renderReserve renders the free seat list and the duration choices.
func (m Model) renderReserve() string {
	styles := m.theme.Styles()
	var b strings.Builder

	if len(m.choices) == 0 {
		b.WriteString(styles.MutedText.Render("No free seats right now."))
		b.WriteString("\n")
	}
	for i, id := range m.choices {
		if i == m.choiceIdx {
			b.WriteString(styles.Selected.Render("> " + padRight(id, 10)))
		} else {
			b.WriteString(styles.Text.Render("  " + id))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.MutedText.Render("Duration  "))
	for i, d := range command.DurationChoices {
		label := fmt.Sprintf(" %d min ", d)
		if i == m.durationIdx {
			b.WriteString(styles.Selected.Render(label))
		} else {
			b.WriteString(styles.MutedText.Render(label))
		}
	}
	b.WriteString("\n")
	if m.busy {
		b.WriteString("\n")
		b.WriteString(styles.WarningText.Render("Reserving..."))
	}

	return m.renderBox(fmt.Sprintf("Reserve (%d free)", len(m.choices)), b.String())
}
