package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/carrel/internal/command"
	"github.com/five82/carrel/internal/session"
)

func (m *Model) initCardInput() {
	in := textinput.New()
	in.Placeholder = "card UID"
	in.CharLimit = 64
	in.Width = 24
	m.cardInput = in
}

func (m Model) loadProfileCmd() tea.Cmd {
	if m.accounts == nil {
		return nil
	}
	ctx, accounts := m.ctx, m.accounts
	return func() tea.Msg {
		p, err := accounts.Profile(ctx)
		return profileMsg{profile: p, err: err}
	}
}

func (m Model) handleProfile(msg profileMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.notify("Profile: " + command.Describe(msg.err))
		if errors.Is(msg.err, session.ErrUnauthorized) {
			m.setView(ViewLogin)
		}
		return m, nil
	}
	m.profile = msg.profile
	m.profileLoaded = true
	return m, nil
}

// handleProfileKey processes keyboard input for the profile page.
func (m Model) handleProfileKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.cardInput.Blur()
		m.setView(ViewSeats)
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		return m.submitBind()
	}
	var cmd tea.Cmd
	m.cardInput, cmd = m.cardInput.Update(msg)
	return m, cmd
}

func (m Model) submitBind() (tea.Model, tea.Cmd) {
	cardID := strings.TrimSpace(m.cardInput.Value())
	if m.busy || m.accounts == nil {
		return m, nil
	}
	if cardID == "" {
		m.notify("Enter the card UID to bind.")
		return m, nil
	}
	m.busy = true
	ctx, accounts := m.ctx, m.accounts
	return m, func() tea.Msg {
		return bindResultMsg{cardID: cardID, err: accounts.BindCard(ctx, cardID)}
	}
}

func (m Model) handleBindResult(msg bindResultMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if msg.err != nil {
		m.notify("Bind failed: " + command.Describe(msg.err))
		return m, nil
	}
	m.cardInput.Reset()
	m.notify("Card " + msg.cardID + " bound.")
	return m, m.loadProfileCmd()
}

// renderProfile renders the account page with the card binding form.
func (m Model) renderProfile() string {
	styles := m.theme.Styles()
	var b strings.Builder

	user := m.username()
	role := ""
	if m.session != nil {
		role = string(m.session.User().Role)
	}
	b.WriteString(styles.MutedText.Render(padRight("User", 10)))
	b.WriteString(styles.Text.Render(orDash(user)))
	if role != "" {
		b.WriteString(styles.FaintText.Render("  " + role))
	}
	b.WriteString("\n")

	b.WriteString(styles.MutedText.Render(padRight("Card", 10)))
	switch {
	case !m.profileLoaded:
		b.WriteString(styles.FaintText.Render("loading..."))
	case m.profile.Bound():
		b.WriteString(styles.SuccessText.Render(m.profile.CardID))
	default:
		b.WriteString(styles.WarningText.Render("not bound (required to reserve)"))
	}
	b.WriteString("\n")

	if snapshotRec, ok := m.snapshot.MineActive(user); ok {
		b.WriteString(styles.MutedText.Render(padRight("Seat", 10)))
		b.WriteString(styles.AccentText.Render(snapshotRec.ID + "  " + snapshotRec.Priority().String()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.MutedText.Render(padRight("Bind", 10)))
	b.WriteString(m.cardInput.View())
	if m.busy {
		b.WriteString("  ")
		b.WriteString(styles.WarningText.Render("binding..."))
	}

	return m.renderBox("Profile", b.String())
}
