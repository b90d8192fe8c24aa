package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/carrel/internal/command"
	"github.com/five82/carrel/internal/seat"
)

// handleSeatKey processes keyboard input for the seat map.
func (m Model) handleSeatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	count := len(m.snapshot.Seats)
	cols := m.gridColumns()

	switch {
	case key.Matches(msg, m.keys.Left):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Right):
		if m.selected < count-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.Up):
		if m.selected-cols >= 0 {
			m.selected -= cols
		}
	case key.Matches(msg, m.keys.Down):
		if m.selected+cols < count {
			m.selected += cols
		}
	case key.Matches(msg, m.keys.Refresh):
		if m.sync == nil || m.busy {
			return m, nil
		}
		m.busy = true
		return m, refreshCmd(m.ctx, m.sync)
	case key.Matches(msg, m.keys.Reserve):
		return m.startReserve()
	case key.Matches(msg, m.keys.Release):
		return m.startRelease()
	case key.Matches(msg, m.keys.Profile):
		if !m.loggedIn() {
			m.notify("Log in to see your profile.")
			m.setView(ViewLogin)
			return m, nil
		}
		m.setView(ViewProfile)
		return m, m.loadProfileCmd()
	case key.Matches(msg, m.keys.Account):
		if m.loggedIn() {
			return m.logout()
		}
		m.setView(ViewLogin)
	}
	return m, nil
}

// startReserve records the selected seat as the pending intent and opens the
// reserve picker, or the login form first when there is no session.
func (m Model) startReserve() (tea.Model, tea.Cmd) {
	if m.loggedIn() && m.snapshot.HasMineActive {
		m.notify(command.Describe(command.ErrAlreadyReserved))
		return m, nil
	}
	if rec, ok := m.selectedSeat(); ok && rec.Reservable() {
		m.prefs.SetPendingSeat(rec.ID)
		m.savePrefs()
	}
	if !m.loggedIn() {
		m.notify("Log in to reserve a seat.")
		m.setView(ViewLogin)
		return m, nil
	}
	m.openReserve()
	return m, nil
}

// startRelease asks for confirmation before cancelling or checking out the
// selected seat. Only the owner of the active reservation is offered this.
func (m Model) startRelease() (tea.Model, tea.Cmd) {
	rec, ok := m.selectedSeat()
	if !ok {
		return m, nil
	}
	res, owned := m.snapshot.OwnedReservation(rec.ID, m.username())
	if !owned {
		m.notify(fmt.Sprintf("Seat %s has no reservation of yours.", rec.ID))
		return m, nil
	}
	m.confirm = &pendingRelease{seatID: rec.ID, reservationID: res.ID, label: rec.ActionLabel()}
	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	pending := m.confirm
	m.confirm = nil
	if !key.Matches(msg, m.keys.Yes) || m.commands == nil {
		return m, nil
	}
	m.busy = true
	ctx, commands := m.ctx, m.commands
	return m, func() tea.Msg {
		err := commands.Cancel(ctx, pending.reservationID)
		return releaseResultMsg{seatID: pending.seatID, label: pending.label, err: err}
	}
}

func (m Model) logout() (tea.Model, tea.Cmd) {
	name := m.username()
	m.session.Logout()
	m.prefs.Forget()
	m.savePrefs()
	m.profileLoaded = false
	m.notify(fmt.Sprintf("Logged out %s.", name))
	return m, nil
}

func (m Model) selectedSeat() (seat.Record, bool) {
	if m.selected < 0 || m.selected >= len(m.snapshot.Seats) {
		return seat.Record{}, false
	}
	return m.snapshot.Seats[m.selected], true
}

func (m *Model) clampSelection() {
	if n := len(m.snapshot.Seats); m.selected >= n {
		m.selected = n - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

// tileWidth is the rendered width of one seat tile, padding included.
func (m Model) tileWidth() int {
	widest := 2
	for _, rec := range m.snapshot.Seats {
		if n := lipgloss.Width(rec.ID); n > widest {
			widest = n
		}
	}
	return widest + 3 // padding plus the ownership mark
}

func (m Model) gridColumns() int {
	usable := m.width - 4
	cols := usable / (m.tileWidth() + 1)
	if cols < 1 {
		return 1
	}
	return cols
}

// renderSeats renders the seat grid and the selected seat's detail line.
func (m Model) renderSeats() string {
	styles := m.theme.Styles()

	if len(m.snapshot.Seats) == 0 {
		msg := "No seats reported yet."
		if !m.snapshot.HasData {
			msg = "Waiting for the first update..."
		}
		return m.renderBox("Seats", styles.MutedText.Render(msg))
	}

	username := m.username()
	cols := m.gridColumns()
	width := m.tileWidth() - 2

	var rows []string
	var row []string
	for i, rec := range m.snapshot.Seats {
		label := rec.ID
		if rec.OwnedBy(username) {
			label += "*"
		}
		style := styles.SeatStyle(rec.Priority())
		if rec.State == seat.StateUnknown {
			style = style.Italic(true)
		}
		if i == m.selected {
			style = style.Reverse(true).Underline(true)
		}
		row = append(row, style.Render(padRight(label, width)))
		if len(row) == cols {
			rows = append(rows, strings.Join(row, " "))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, strings.Join(row, " "))
	}

	var b strings.Builder
	b.WriteString(strings.Join(rows, "\n"))
	b.WriteString("\n\n")
	b.WriteString(m.renderSeatDetail(styles))
	if m.confirm != nil {
		b.WriteString("\n")
		b.WriteString(styles.WarningText.Render(
			fmt.Sprintf("Confirm %s on %s? [y/N]", m.confirm.label, m.confirm.seatID)))
	}
	b.WriteString("\n")
	b.WriteString(m.renderLegend(styles))

	return m.renderBox(fmt.Sprintf("Seats (%d)", len(m.snapshot.Seats)), b.String())
}

func (m Model) renderSeatDetail(styles Styles) string {
	rec, ok := m.selectedSeat()
	if !ok {
		return ""
	}
	parts := []string{
		styles.Text.Bold(true).Render(rec.ID),
		styles.SeatStyle(rec.Priority()).Render(strings.ToUpper(rec.Priority().String())),
	}
	if rec.State == seat.StateUnknown && rec.RawState != "" {
		parts = append(parts, styles.MutedText.Render("raw "+rec.RawState))
	}
	if rec.Active != nil {
		owner := orDash(rec.Active.Owner)
		line := fmt.Sprintf("reservation #%d by %s", rec.Active.ID, owner)
		if rec.OwnedBy(m.username()) {
			parts = append(parts, styles.AccentText.Render(line+" (you)"))
			parts = append(parts, styles.MutedText.Render("c: "+rec.ActionLabel()))
		} else {
			parts = append(parts, styles.MutedText.Render(line))
		}
	} else if rec.Reservable() {
		parts = append(parts, styles.MutedText.Render("r: reserve"))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderLegend(styles Styles) string {
	counts := m.snapshot.Counts()
	var parts []string
	for _, p := range []seat.Priority{seat.PriorityFree, seat.PriorityReserved, seat.PriorityInUse} {
		parts = append(parts, styles.SeatStyle(p).Render(p.String())+" "+
			styles.MutedText.Render(fmt.Sprintf("%d", counts[p])))
	}
	parts = append(parts, styles.FaintText.Render("* yours"))
	return strings.Join(parts, "  ")
}

// renderBox draws content inside a titled rounded border.
func (m Model) renderBox(title, content string) string {
	styles := m.theme.Styles()
	width := m.width - 2
	if width < 20 {
		width = 20
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Border)).
		Padding(0, 1).
		Width(width)
	return styles.AccentText.Bold(true).Render(" "+title) + "\n" + box.Render(content)
}

// renderActivity renders the recent activity pane.
func (m Model) renderActivity() string {
	styles := m.theme.Styles()
	if len(m.activityLines) == 0 {
		return styles.FaintText.Render(" No activity yet.")
	}
	return styles.MutedText.Render(m.activity.View())
}
