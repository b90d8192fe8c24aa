package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/carrel/internal/account"
	"github.com/five82/carrel/internal/command"
	"github.com/five82/carrel/internal/prefs"
	"github.com/five82/carrel/internal/session"
	"github.com/five82/carrel/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewSeats View = iota
	ViewLogin
	ViewReserve
	ViewProfile
)

// Session is the part of session.Client the UI drives.
type Session interface {
	Login(ctx context.Context, username, password string) (session.User, error)
	Logout()
	User() session.User
	LoggedIn() bool
	BaseURL() string
	SwitchHost(addr string) error
}

// Sync is the polling loop. The UI runs it only while the seat map is shown.
type Sync interface {
	Start(ctx context.Context, interval time.Duration)
	Stop()
	Running() bool
	RefreshNow(ctx context.Context) error
}

// Snapshotter exposes the latest seat state.
type Snapshotter interface {
	Snapshot() state.Snapshot
}

// Commands issues seat mutations.
type Commands interface {
	Reserve(ctx context.Context, seatID string, minutes int) error
	Cancel(ctx context.Context, reservationID int) error
}

// Accounts covers registration and the profile page.
type Accounts interface {
	Register(ctx context.Context, username, password string) error
	Profile(ctx context.Context) (account.Profile, error)
	BindCard(ctx context.Context, cardID string) error
}

// Options configures the UI.
type Options struct {
	Context        context.Context
	Session        Session
	Sync           Sync
	Store          Snapshotter
	Commands       Commands
	Accounts       Accounts
	Prefs          prefs.Prefs
	PrefsPath      string
	PollInterval   time.Duration
	DefaultMinutes int
	Logger         *slog.Logger
}

// Login form fields.
const (
	fieldServer = iota
	fieldUsername
	fieldPassword
	fieldConfirm
	fieldCount
)

// pendingRelease is a cancel or check-out awaiting confirmation.
type pendingRelease struct {
	seatID        string
	reservationID int
	label         string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx            context.Context
	session        Session
	sync           Sync
	store          Snapshotter
	commands       Commands
	accounts       Accounts
	prefs          prefs.Prefs
	prefsPath      string
	pollInterval   time.Duration
	defaultMinutes int
	logger         *slog.Logger
	keys           keyMap

	// UI state
	theme    Theme
	view     View
	width    int
	height   int
	ready    bool
	showHelp bool
	busy     bool

	// Data state
	snapshot state.Snapshot

	// Seat map
	selected int
	confirm  *pendingRelease

	// Login form
	inputs     [fieldCount]textinput.Model
	focus      int
	signingUp  bool
	loginError string

	// Reserve picker
	choices     []string
	choiceIdx   int
	durationIdx int

	// Profile
	profile       account.Profile
	profileLoaded bool
	cardInput     textinput.Model

	// Activity pane
	activity      viewport.Model
	activityLines []string
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	minutes := opts.DefaultMinutes
	if minutes <= 0 {
		minutes = command.DefaultMinutes
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	m := Model{
		ctx:            ctx,
		session:        opts.Session,
		sync:           opts.Sync,
		store:          opts.Store,
		commands:       opts.Commands,
		accounts:       opts.Accounts,
		prefs:          opts.Prefs,
		prefsPath:      prefsPath,
		pollInterval:   interval,
		defaultMinutes: minutes,
		logger:         logger,
		keys:           DefaultKeyMap(),
		theme:          GetTheme(opts.Prefs.Theme),
		view:           ViewSeats,
		durationIdx:    durationIndex(minutes),
		activity:       viewport.New(0, ActivityHeight),
	}
	m.initLoginInputs()
	m.initCardInput()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	m.syncPolling()
	cmds := []tea.Cmd{tickCmd(DefaultUIInterval)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.activity.Width = msg.Width
		m.ready = true
		m.clampSelection()
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd(DefaultUIInterval)}
		if m.store != nil {
			cmds = append(cmds, fetchSnapshotCmd(m.store))
		}
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.clampSelection()
		return m, nil

	case loginResultMsg:
		return m.handleLoginResult(msg)

	case reserveResultMsg:
		return m.handleReserveResult(msg)

	case releaseResultMsg:
		m.busy = false
		if msg.err != nil {
			m.notify(fmt.Sprintf("%s %s failed: %s", msg.label, msg.seatID, command.Describe(msg.err)))
			return m, nil
		}
		m.notify(fmt.Sprintf("%s done for %s", capitalize(msg.label), msg.seatID))
		return m, fetchSnapshotCmd(m.store)

	case refreshResultMsg:
		m.busy = false
		if msg.err != nil {
			m.notify("Refresh failed: " + command.Describe(msg.err))
		}
		return m, fetchSnapshotCmd(m.store)

	case profileMsg:
		return m.handleProfile(msg)

	case bindResultMsg:
		return m.handleBindResult(msg)
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")

	switch m.view {
	case ViewLogin:
		b.WriteString(m.renderLogin())
	case ViewReserve:
		b.WriteString(m.renderReserve())
	case ViewProfile:
		b.WriteString(m.renderProfile())
	default:
		b.WriteString(m.renderSeats())
	}

	b.WriteString("\n")
	b.WriteString(m.renderActivity())
	return b.String()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if msg.Type == tea.KeyCtrlC {
		m.stopPolling()
		return m, tea.Quit
	}

	// Forms own printable keys.
	switch m.view {
	case ViewLogin:
		return m.handleLoginKey(msg)
	case ViewProfile:
		return m.handleProfileKey(msg)
	case ViewReserve:
		return m.handleReserveKey(msg)
	}

	if m.confirm != nil {
		return m.handleConfirmKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.stopPolling()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.savePrefs()
		return m, nil
	}
	return m.handleSeatKey(msg)
}

// setView switches views and keeps polling tied to the seat map being
// visible.
func (m *Model) setView(v View) {
	m.view = v
	m.syncPolling()
	switch v {
	case ViewLogin:
		m.focusField(m.initialLoginFocus())
	case ViewProfile:
		m.cardInput.Focus()
	}
}

func (m *Model) syncPolling() {
	if m.sync == nil {
		return
	}
	if m.view == ViewSeats {
		m.sync.Start(m.ctx, m.pollInterval)
		return
	}
	m.sync.Stop()
}

func (m *Model) stopPolling() {
	if m.sync != nil {
		m.sync.Stop()
	}
}

func (m Model) username() string {
	if m.session == nil {
		return ""
	}
	return m.session.User().Username
}

func (m Model) loggedIn() bool {
	return m.session != nil && m.session.LoggedIn()
}

// notify appends a line to the activity pane.
func (m *Model) notify(line string) {
	stamp := time.Now().Format("15:04:05")
	m.activityLines = append(m.activityLines, stamp+"  "+line)
	if over := len(m.activityLines) - ActivityLimit; over > 0 {
		m.activityLines = m.activityLines[over:]
	}
	m.activity.SetContent(strings.Join(m.activityLines, "\n"))
	m.activity.GotoBottom()
	m.logger.Info("activity", "message", line)
}

func (m *Model) savePrefs() {
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.logger.Warn("save prefs failed", "error", err)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type loginResultMsg struct {
	user     session.User
	server   string
	signedUp bool
	err      error
}

type reserveResultMsg struct {
	seatID  string
	minutes int
	err     error
}

type releaseResultMsg struct {
	seatID string
	label  string
	err    error
}

type refreshResultMsg struct{ err error }

type profileMsg struct {
	profile account.Profile
	err     error
}

type bindResultMsg struct {
	cardID string
	err    error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store Snapshotter) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func refreshCmd(ctx context.Context, sync Sync) tea.Cmd {
	return func() tea.Msg {
		return refreshResultMsg{err: sync.RefreshNow(ctx)}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	ctx := m.ctx
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
