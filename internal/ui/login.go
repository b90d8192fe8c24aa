package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/carrel/internal/command"
)

func (m *Model) initLoginInputs() {
	placeholders := [fieldCount]string{"192.168.0.104:5000", "username", "password", "repeat password"}
	for i := range m.inputs {
		in := textinput.New()
		in.Placeholder = placeholders[i]
		in.CharLimit = 128
		in.Width = 32
		if i == fieldPassword || i == fieldConfirm {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		m.inputs[i] = in
	}
	if m.session != nil {
		m.inputs[fieldServer].SetValue(m.session.BaseURL())
	}
	m.inputs[fieldUsername].SetValue(m.prefs.LastUsername)
}

func (m Model) initialLoginFocus() int {
	switch {
	case strings.TrimSpace(m.inputs[fieldServer].Value()) == "":
		return fieldServer
	case strings.TrimSpace(m.inputs[fieldUsername].Value()) == "":
		return fieldUsername
	default:
		return fieldPassword
	}
}

func (m *Model) focusField(i int) {
	m.focus = i
	for j := range m.inputs {
		if j == i {
			m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
}

func (m Model) fieldVisible(i int) bool {
	return i != fieldConfirm || m.signingUp
}

func (m *Model) moveFocus(delta int) {
	next := m.focus
	for range fieldCount {
		next = (next + delta + fieldCount) % fieldCount
		if m.fieldVisible(next) {
			break
		}
	}
	m.focusField(next)
}

// handleLoginKey processes keyboard input for the login form.
func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.loginError = ""
		m.setView(ViewSeats)
		return m, nil
	case key.Matches(msg, m.keys.ToggleSignup):
		m.signingUp = !m.signingUp
		if !m.signingUp && m.focus == fieldConfirm {
			m.focusField(fieldPassword)
		}
		return m, nil
	case key.Matches(msg, m.keys.NextField):
		m.moveFocus(1)
		return m, nil
	case key.Matches(msg, m.keys.PrevField):
		m.moveFocus(-1)
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		return m.submitLogin()
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) submitLogin() (tea.Model, tea.Cmd) {
	if m.busy || m.session == nil {
		return m, nil
	}
	server := strings.TrimSpace(m.inputs[fieldServer].Value())
	username := strings.TrimSpace(m.inputs[fieldUsername].Value())
	password := m.inputs[fieldPassword].Value()

	if username == "" || password == "" {
		m.loginError = "Username and password are required."
		return m, nil
	}
	if m.signingUp && password != m.inputs[fieldConfirm].Value() {
		m.loginError = "Passwords do not match."
		return m, nil
	}
	if server != "" && server != m.session.BaseURL() {
		if err := m.session.SwitchHost(server); err != nil {
			m.loginError = fmt.Sprintf("Invalid server address: %v", err)
			return m, nil
		}
		m.inputs[fieldServer].SetValue(m.session.BaseURL())
		m.notify("Server set to " + m.session.BaseURL())
	}

	m.busy = true
	m.loginError = ""
	ctx, sess, accounts := m.ctx, m.session, m.accounts
	signUp := m.signingUp && accounts != nil
	base := sess.BaseURL()
	return m, func() tea.Msg {
		return runLogin(ctx, sess, accounts, base, username, password, signUp)
	}
}

func runLogin(ctx context.Context, sess Session, accounts Accounts, base, username, password string, signUp bool) loginResultMsg {
	if signUp {
		if err := accounts.Register(ctx, username, password); err != nil {
			return loginResultMsg{server: base, signedUp: true, err: err}
		}
	}
	user, err := sess.Login(ctx, username, password)
	return loginResultMsg{user: user, server: base, signedUp: signUp, err: err}
}

func (m Model) handleLoginResult(msg loginResultMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	m.inputs[fieldPassword].Reset()
	m.inputs[fieldConfirm].Reset()

	if msg.err != nil {
		m.loginError = command.Describe(msg.err)
		m.notify(m.loginError)
		m.focusField(fieldPassword)
		return m, nil
	}

	if msg.signedUp {
		m.notify(fmt.Sprintf("Registered %s.", msg.user.Username))
	}
	m.signingUp = false
	m.notify(fmt.Sprintf("Logged in as %s (%s).", msg.user.Username, msg.user.Role))
	m.prefs.RememberLogin(msg.server, msg.user.Username, string(msg.user.Role))
	m.savePrefs()

	if m.prefs.PendingSeat != "" {
		m.openReserve()
		return m, nil
	}
	m.setView(ViewSeats)
	return m, fetchSnapshotCmd(m.store)
}

// renderLogin renders the login and sign-up form.
func (m Model) renderLogin() string {
	styles := m.theme.Styles()
	labels := [fieldCount]string{"Server", "Username", "Password", "Confirm"}

	var b strings.Builder
	for i := range m.inputs {
		if !m.fieldVisible(i) {
			continue
		}
		label := styles.MutedText.Render(padRight(labels[i], 10))
		if i == m.focus {
			label = styles.AccentText.Render(padRight(labels[i], 10))
		}
		b.WriteString(label)
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case m.busy:
		b.WriteString(styles.WarningText.Render("Signing in..."))
	case m.loginError != "":
		b.WriteString(styles.DangerText.Render(m.loginError))
	case m.prefs.PendingSeat != "":
		b.WriteString(styles.InfoText.Render("Seat " + m.prefs.PendingSeat + " will be preselected after login."))
	}

	title := "Log in"
	if m.signingUp {
		title = "Sign up"
	}
	return m.renderBox(title, b.String())
}
