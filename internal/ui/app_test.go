package ui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/carrel/internal/account"
	"github.com/five82/carrel/internal/command"
	"github.com/five82/carrel/internal/prefs"
	"github.com/five82/carrel/internal/seat"
	"github.com/five82/carrel/internal/session"
	"github.com/five82/carrel/internal/state"
)

type fakeSession struct {
	mu       sync.Mutex
	base     string
	user     session.User
	loginErr error
	switched []string
}

func (s *fakeSession) Login(_ context.Context, username, _ string) (session.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loginErr != nil {
		return session.User{}, s.loginErr
	}
	s.user = session.User{Username: username, Role: session.RoleUser}
	return s.user, nil
}

func (s *fakeSession) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = session.User{}
}

func (s *fakeSession) User() session.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *fakeSession) LoggedIn() bool { return s.User().Username != "" }

func (s *fakeSession) BaseURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base
}

func (s *fakeSession) SwitchHost(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.switched = append(s.switched, addr)
	s.base = "http://" + addr
	s.user = session.User{}
	return nil
}

type fakeSync struct {
	mu        sync.Mutex
	running   bool
	starts    int
	stops     int
	refreshes int
}

func (f *fakeSync) Start(context.Context, time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		f.starts++
	}
	f.running = true
}

func (f *fakeSync) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.running = false
}

func (f *fakeSync) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeSync) RefreshNow(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return nil
}

type fakeStore struct{ snap state.Snapshot }

func (s *fakeStore) Snapshot() state.Snapshot { return s.snap }

type reserveCall struct {
	seatID  string
	minutes int
}

type fakeCommands struct {
	mu         sync.Mutex
	reserves   []reserveCall
	cancels    []int
	reserveErr error
}

func (c *fakeCommands) Reserve(_ context.Context, seatID string, minutes int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reserves = append(c.reserves, reserveCall{seatID, minutes})
	return c.reserveErr
}

func (c *fakeCommands) Cancel(_ context.Context, reservationID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancels = append(c.cancels, reservationID)
	return nil
}

type fakeAccounts struct {
	mu         sync.Mutex
	registered []string
	bound      string
}

func (a *fakeAccounts) Register(_ context.Context, username, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.registered = append(a.registered, username)
	return nil
}

func (a *fakeAccounts) Profile(context.Context) (account.Profile, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return account.Profile{Username: "alice", CardID: a.bound}, nil
}

func (a *fakeAccounts) BindCard(_ context.Context, cardID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bound = cardID
	return nil
}

type harness struct {
	sess      *fakeSession
	sync      *fakeSync
	store     *fakeStore
	commands  *fakeCommands
	accounts  *fakeAccounts
	prefsPath string
}

func newHarness(t *testing.T, snap state.Snapshot) (Model, *harness) {
	t.Helper()
	h := &harness{
		sess:      &fakeSession{base: "http://127.0.0.1:5000"},
		sync:      &fakeSync{},
		store:     &fakeStore{snap: snap},
		commands:  &fakeCommands{},
		accounts:  &fakeAccounts{},
		prefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
	}
	m := New(Options{
		Session:   h.sess,
		Sync:      h.sync,
		Store:     h.store,
		Commands:  h.commands,
		Accounts:  h.accounts,
		Prefs:     prefs.Prefs{Theme: "Dracula"},
		PrefsPath: h.prefsPath,
	})
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = update(t, m, snapshotMsg(snap))
	return m, h
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m Model, cmd tea.Cmd) (Model, tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatalf("expected a command, got nil")
	}
	return updateCmd(t, m, cmd())
}

func activityContains(m Model, want string) bool {
	for _, line := range m.activityLines {
		if strings.Contains(line, want) {
			return true
		}
	}
	return false
}

func twoFreeSeats() state.Snapshot {
	return state.Snapshot{
		HasData: true,
		Seats: []seat.Record{
			{ID: "A1", State: seat.StateFree},
			{ID: "A2", State: seat.StateFree},
		},
	}
}

func TestInit_StartsPollingOnSeatMap(t *testing.T) {
	m, h := newHarness(t, twoFreeSeats())
	_ = m.Init()
	if !h.sync.Running() || h.sync.starts != 1 {
		t.Fatalf("sync running=%v starts=%d, want running after Init", h.sync.Running(), h.sync.starts)
	}
}

func TestPollingFollowsSeatMapVisibility(t *testing.T) {
	m, h := newHarness(t, twoFreeSeats())
	_ = m.Init()

	m = update(t, m, keyMsg("L"))
	if m.view != ViewLogin {
		t.Fatalf("view = %v, want login", m.view)
	}
	if h.sync.Running() {
		t.Fatalf("sync still running while the login form is shown")
	}

	m = update(t, m, keyMsg("esc"))
	if m.view != ViewSeats || !h.sync.Running() {
		t.Fatalf("view=%v running=%v, want seat map with polling", m.view, h.sync.Running())
	}
	if h.sync.starts != 2 {
		t.Fatalf("starts = %d, want 2", h.sync.starts)
	}
}

func TestReserve_PendingSeatSurvivesLogin(t *testing.T) {
	m, h := newHarness(t, twoFreeSeats())

	m = update(t, m, keyMsg("l")) // select A2
	m = update(t, m, keyMsg("r"))
	if m.view != ViewLogin {
		t.Fatalf("view = %v, want login for a guest", m.view)
	}
	saved, _ := prefs.Load(h.prefsPath)
	if saved.PendingSeat != "A2" {
		t.Fatalf("saved pending seat = %q, want A2", saved.PendingSeat)
	}

	m.inputs[fieldUsername].SetValue("alice")
	m.inputs[fieldPassword].SetValue("secret")
	m, cmd := updateCmd(t, m, keyMsg("enter"))
	m, _ = run(t, m, cmd)

	if m.view != ViewReserve {
		t.Fatalf("view = %v, want reserve picker after login", m.view)
	}
	if len(m.choices) != 2 || m.choices[m.choiceIdx] != "A2" {
		t.Fatalf("choices=%v idx=%d, want A2 preselected", m.choices, m.choiceIdx)
	}
	saved, _ = prefs.Load(h.prefsPath)
	if saved.PendingSeat != "" {
		t.Fatalf("pending seat = %q after the picker opened, want consumed", saved.PendingSeat)
	}
	if saved.LastUsername != "alice" || saved.LastServer != "http://127.0.0.1:5000" {
		t.Fatalf("remembered login = %+v", saved)
	}

	m, cmd = updateCmd(t, m, keyMsg("enter"))
	m, _ = run(t, m, cmd)
	if len(h.commands.reserves) != 1 || h.commands.reserves[0] != (reserveCall{"A2", command.DefaultMinutes}) {
		t.Fatalf("reserves = %v, want A2 for the default duration", h.commands.reserves)
	}
	if m.view != ViewSeats || !activityContains(m, "Reserved A2") {
		t.Fatalf("view=%v activity=%v, want seat map and a confirmation", m.view, m.activityLines)
	}
}

func TestReserve_DurationChoice(t *testing.T) {
	m, h := newHarness(t, twoFreeSeats())
	h.sess.user = session.User{Username: "alice"}

	m = update(t, m, keyMsg("r"))
	if m.view != ViewReserve {
		t.Fatalf("view = %v, want reserve", m.view)
	}
	m = update(t, m, keyMsg("h")) // 120 -> 60
	m, cmd := updateCmd(t, m, keyMsg("enter"))
	_, _ = run(t, m, cmd)
	if h.commands.reserves[0] != (reserveCall{"A1", 60}) {
		t.Fatalf("reserve = %v, want A1 for 60 minutes", h.commands.reserves[0])
	}
}

func TestReserve_RefusedWhenMineActive(t *testing.T) {
	snap := twoFreeSeats()
	snap.HasMineActive = true
	m, h := newHarness(t, snap)
	h.sess.user = session.User{Username: "alice"}

	m = update(t, m, keyMsg("r"))
	if m.view != ViewSeats {
		t.Fatalf("view = %v, want seat map", m.view)
	}
	if !activityContains(m, "already have an active reservation") {
		t.Fatalf("activity = %v, want refusal", m.activityLines)
	}
	if len(h.commands.reserves) != 0 {
		t.Fatalf("reserves = %v, want none", h.commands.reserves)
	}
}

func TestReserveResult_BindingRequiredOpensProfile(t *testing.T) {
	m, h := newHarness(t, twoFreeSeats())
	h.sess.user = session.User{Username: "alice"}

	m, cmd := updateCmd(t, m, reserveResultMsg{seatID: "A1", minutes: 120,
		err: fmt.Errorf("%w: bind a card first", command.ErrBindingRequired)})
	if m.view != ViewProfile {
		t.Fatalf("view = %v, want profile", m.view)
	}
	m, _ = run(t, m, cmd)
	if !m.profileLoaded {
		t.Fatalf("profile not loaded")
	}
}

func TestRelease_OnlyOfferedToOwner(t *testing.T) {
	snap := state.Snapshot{
		HasData: true,
		Seats: []seat.Record{
			{ID: "A1", State: seat.StateReserved, Active: &seat.Reservation{ID: 5, Owner: "bob", Status: seat.ReservationActive}},
			{ID: "A2", State: seat.StateInUse, Active: &seat.Reservation{ID: 7, Owner: "alice", Status: seat.ReservationInUse}},
		},
	}
	m, h := newHarness(t, snap)
	h.sess.user = session.User{Username: "alice"}

	m = update(t, m, keyMsg("c"))
	if m.confirm != nil {
		t.Fatalf("confirm offered for another user's seat")
	}
	if !activityContains(m, "no reservation of yours") {
		t.Fatalf("activity = %v, want ownership message", m.activityLines)
	}

	m = update(t, m, keyMsg("l"))
	m = update(t, m, keyMsg("c"))
	if m.confirm == nil || m.confirm.label != "check out" || m.confirm.reservationID != 7 {
		t.Fatalf("confirm = %+v, want check out of reservation 7", m.confirm)
	}

	m, cmd := updateCmd(t, m, keyMsg("y"))
	m, _ = run(t, m, cmd)
	if len(h.commands.cancels) != 1 || h.commands.cancels[0] != 7 {
		t.Fatalf("cancels = %v, want [7]", h.commands.cancels)
	}
	if !activityContains(m, "Check out done for A2") {
		t.Fatalf("activity = %v, want check-out confirmation", m.activityLines)
	}
}

func TestRelease_DeclinedConfirmation(t *testing.T) {
	snap := state.Snapshot{
		HasData: true,
		Seats: []seat.Record{
			{ID: "A1", State: seat.StateReserved, Active: &seat.Reservation{ID: 5, Owner: "alice"}},
		},
	}
	m, h := newHarness(t, snap)
	h.sess.user = session.User{Username: "alice"}

	m = update(t, m, keyMsg("c"))
	if m.confirm == nil || m.confirm.label != "cancel reservation" {
		t.Fatalf("confirm = %+v, want cancel reservation", m.confirm)
	}
	m, cmd := updateCmd(t, m, keyMsg("n"))
	if cmd != nil || m.confirm != nil {
		t.Fatalf("declined confirmation still issued a command")
	}
}

func TestLogin_FailureShowsMessage(t *testing.T) {
	m, h := newHarness(t, twoFreeSeats())
	h.sess.loginErr = fmt.Errorf("%w: bad password", session.ErrInvalidCredentials)

	m = update(t, m, keyMsg("L"))
	m.inputs[fieldUsername].SetValue("alice")
	m.inputs[fieldPassword].SetValue("nope")
	m, cmd := updateCmd(t, m, keyMsg("enter"))
	m, _ = run(t, m, cmd)

	if m.view != ViewLogin || m.busy {
		t.Fatalf("view=%v busy=%v, want idle login form", m.view, m.busy)
	}
	if !strings.Contains(m.loginError, "Login failed") {
		t.Fatalf("loginError = %q", m.loginError)
	}
	if m.inputs[fieldPassword].Value() != "" {
		t.Fatalf("password kept after failure")
	}
}

func TestLogin_RequiresCredentials(t *testing.T) {
	m, _ := newHarness(t, twoFreeSeats())
	m = update(t, m, keyMsg("L"))
	m, cmd := updateCmd(t, m, keyMsg("enter"))
	if cmd != nil || m.loginError == "" {
		t.Fatalf("empty form submitted: cmd=%v err=%q", cmd != nil, m.loginError)
	}
}

func TestLogin_SwitchesServer(t *testing.T) {
	m, h := newHarness(t, twoFreeSeats())
	m = update(t, m, keyMsg("L"))
	m.inputs[fieldServer].SetValue("10.0.0.9:5000")
	m.inputs[fieldUsername].SetValue("alice")
	m.inputs[fieldPassword].SetValue("secret")
	m, cmd := updateCmd(t, m, keyMsg("enter"))
	_, _ = run(t, m, cmd)

	if len(h.sess.switched) != 1 || h.sess.switched[0] != "10.0.0.9:5000" {
		t.Fatalf("switched = %v, want the new server", h.sess.switched)
	}
	saved, _ := prefs.Load(h.prefsPath)
	if saved.LastServer != "http://10.0.0.9:5000" {
		t.Fatalf("LastServer = %q", saved.LastServer)
	}
}

func TestSignUp_RegistersThenLogsIn(t *testing.T) {
	m, h := newHarness(t, twoFreeSeats())
	m = update(t, m, keyMsg("L"))
	m = update(t, m, keyMsg("ctrl+r"))
	if !m.signingUp {
		t.Fatalf("sign-up mode not enabled")
	}

	m.inputs[fieldUsername].SetValue("carol")
	m.inputs[fieldPassword].SetValue("pw1")
	m.inputs[fieldConfirm].SetValue("pw2")
	m, cmd := updateCmd(t, m, keyMsg("enter"))
	if cmd != nil || !strings.Contains(m.loginError, "do not match") {
		t.Fatalf("mismatched passwords submitted: err=%q", m.loginError)
	}

	m.inputs[fieldConfirm].SetValue("pw1")
	m, cmd = updateCmd(t, m, keyMsg("enter"))
	m, _ = run(t, m, cmd)

	if len(h.accounts.registered) != 1 || h.accounts.registered[0] != "carol" {
		t.Fatalf("registered = %v, want [carol]", h.accounts.registered)
	}
	if !h.sess.LoggedIn() || m.view != ViewSeats {
		t.Fatalf("logged in=%v view=%v, want seat map after sign-up", h.sess.LoggedIn(), m.view)
	}
}

func TestProfile_BindCard(t *testing.T) {
	m, h := newHarness(t, twoFreeSeats())
	h.sess.user = session.User{Username: "alice"}

	m, cmd := updateCmd(t, m, keyMsg("p"))
	if m.view != ViewProfile {
		t.Fatalf("view = %v, want profile", m.view)
	}
	m, _ = run(t, m, cmd)
	if m.profile.Bound() {
		t.Fatalf("profile bound before binding")
	}

	m.cardInput.SetValue(" CARD-1 ")
	m, cmd = updateCmd(t, m, keyMsg("enter"))
	m, cmd = run(t, m, cmd)
	m, _ = run(t, m, cmd)

	if h.accounts.bound != "CARD-1" || !m.profile.Bound() {
		t.Fatalf("bound=%q profile=%+v, want CARD-1", h.accounts.bound, m.profile)
	}
}

func TestProfile_RequiresLogin(t *testing.T) {
	m, _ := newHarness(t, twoFreeSeats())
	m = update(t, m, keyMsg("p"))
	if m.view != ViewLogin {
		t.Fatalf("view = %v, want login for a guest", m.view)
	}
}

func TestLogout_ForgetsAccount(t *testing.T) {
	m, h := newHarness(t, twoFreeSeats())
	h.sess.user = session.User{Username: "alice"}
	m.prefs.RememberLogin("http://127.0.0.1:5000", "alice", "user")

	m = update(t, m, keyMsg("L"))
	if h.sess.LoggedIn() {
		t.Fatalf("session still logged in")
	}
	saved, _ := prefs.Load(h.prefsPath)
	if saved.LastUsername != "" || saved.LastServer != "http://127.0.0.1:5000" {
		t.Fatalf("prefs after logout = %+v", saved)
	}
	if m.view != ViewSeats {
		t.Fatalf("view = %v, want seat map", m.view)
	}
}

func TestCycleTheme_SavesPrefs(t *testing.T) {
	m, h := newHarness(t, twoFreeSeats())
	m = update(t, m, keyMsg("T"))
	if m.theme.Name != "Slate" {
		t.Fatalf("theme = %q, want Slate", m.theme.Name)
	}
	saved, _ := prefs.Load(h.prefsPath)
	if saved.Theme != "Slate" {
		t.Fatalf("saved theme = %q, want Slate", saved.Theme)
	}
}

func TestRefreshKey(t *testing.T) {
	m, h := newHarness(t, twoFreeSeats())
	m, cmd := updateCmd(t, m, keyMsg("R"))
	if !m.busy {
		t.Fatalf("busy not set while refreshing")
	}
	m, _ = run(t, m, cmd)
	if h.sync.refreshes != 1 || m.busy {
		t.Fatalf("refreshes=%d busy=%v", h.sync.refreshes, m.busy)
	}
}

func TestView_RendersSeatMap(t *testing.T) {
	m, _ := newHarness(t, twoFreeSeats())
	out := m.View()
	for _, want := range []string{"carrel", "guest", "A1", "A2", seat.Placeholder} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestView_OfflineHeader(t *testing.T) {
	snap := twoFreeSeats()
	snap.LastError = &session.NetworkError{Op: "GET /api/state", Err: errors.New("dial tcp: connection refused")}
	snap.ConsecutiveFailures = 2
	m, _ := newHarness(t, snap)
	out := m.View()
	if !strings.Contains(out, "OFFLINE") || !strings.Contains(out, "Retrying") {
		t.Fatalf("header does not show offline state")
	}
}

func TestClassifyConnectionError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&session.NetworkError{Err: errors.New("connection refused")}, "OFFLINE"},
		{&session.NetworkError{Err: errors.New("lookup x: no such host")}, "HOST NOT FOUND"},
		{&session.NetworkError{Err: errors.New("context deadline exceeded")}, "TIMEOUT"},
		{&session.NetworkError{Err: errors.New("EOF")}, "NETWORK ERROR"},
		{&session.NetworkError{Err: errors.New("i/o timeout")}, "TIMEOUT"},
		{&session.StatusError{Code: 503}, "HTTP 503"},
		{&seat.ParseError{Err: errors.New("x")}, "BAD RESPONSE"},
		{errors.New("other"), "ERROR"},
	}
	for _, tt := range tests {
		if got := classifyConnectionError(tt.err); got != tt.want {
			t.Errorf("classifyConnectionError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestDurationIndex(t *testing.T) {
	if got := command.DurationChoices[durationIndex(240)]; got != 240 {
		t.Fatalf("durationIndex(240) -> %d", got)
	}
	if got := command.DurationChoices[durationIndex(45)]; got != command.DefaultMinutes {
		t.Fatalf("durationIndex(45) -> %d, want default", got)
	}
}
