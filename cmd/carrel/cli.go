package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/five82/carrel/internal/app"
	"github.com/five82/carrel/internal/command"
	"github.com/five82/carrel/internal/logging"
	"github.com/five82/carrel/internal/seat"
	"github.com/five82/carrel/internal/state"
)

// EnvPassword supplies the password to non-interactive runs.
const EnvPassword = "CARREL_PASSWORD"

// usageError reports a malformed command line.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

var errNoAccount = errors.New("no account known, pass --user or run carrel login")

type cli struct {
	globals
	opts   app.Options
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	svc *app.Services
	in  *bufio.Reader
}

func describe(err error) string {
	return command.Describe(err)
}

func (c *cli) dispatch(ctx context.Context, name string, args []string) error {
	want := map[string]int{
		"status": 0, "login": 0, "register": 0, "logout": 0, "profile": 0, "logs": 0,
		"reserve": 1, "cancel": 1, "bind": 1,
	}
	n, ok := want[name]
	if !ok {
		return usagef("unknown command %q", name)
	}
	if len(args) != n {
		return usagef("%s takes %d argument(s), got %d", name, n, len(args))
	}

	if err := c.build(); err != nil {
		return err
	}

	switch name {
	case "status":
		return c.status(ctx)
	case "login":
		return c.login(ctx)
	case "register":
		return c.register(ctx)
	case "logout":
		return c.logout()
	case "reserve":
		return c.reserve(ctx, args[0])
	case "cancel":
		return c.cancel(ctx, args[0])
	case "profile":
		return c.profile(ctx)
	case "logs":
		return c.logs()
	default:
		return c.bind(ctx, args[0])
	}
}

func (c *cli) build() error {
	level := c.logLevel
	if level == "" {
		level = "warn"
	}
	svc, err := app.Build(c.opts, logging.New(c.stderr, level, logging.FormatAuto))
	if err != nil {
		return err
	}
	c.svc = svc
	return nil
}

func (c *cli) status(ctx context.Context) error {
	if err := c.svc.Poller.RefreshNow(ctx); err != nil {
		return err
	}
	printSnapshot(c.stdout, c.svc.Store.Snapshot(), c.svc.Prefs.LastUsername)
	return nil
}

func printSnapshot(w io.Writer, snap state.Snapshot, username string) {
	env := snap.Env
	fmt.Fprintf(w, "Temperature %s  Humidity %s  Illuminance %s\n",
		env.TemperatureText(), env.HumidityText(), env.IlluminanceText())

	counts := snap.Counts()
	fmt.Fprintf(w, "Free %d  Reserved %d  In use %d\n\n",
		counts[seat.PriorityFree], counts[seat.PriorityReserved], counts[seat.PriorityInUse])

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEAT\tSTATUS\tRESERVATION")
	for _, rec := range snap.Seats {
		status := rec.Priority().String()
		if rec.State == seat.StateUnknown && rec.RawState != "" {
			status += " (" + rec.RawState + ")"
		}
		res := seat.Placeholder
		if rec.Active != nil {
			res = fmt.Sprintf("#%d %s", rec.Active.ID, rec.Active.Owner)
			if rec.OwnedBy(username) {
				res += " (you)"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", rec.ID, status, res)
	}
	_ = tw.Flush()
}

// username picks the account for this run.
func (c *cli) username() string {
	if u := strings.TrimSpace(c.user); u != "" {
		return u
	}
	return c.svc.Prefs.LastUsername
}

// signIn logs in the account for this run and remembers it.
func (c *cli) signIn(ctx context.Context) error {
	username := c.username()
	if username == "" {
		prompted, err := c.readLine("Username: ")
		if err != nil {
			return err
		}
		username = prompted
	}
	if username == "" {
		return errNoAccount
	}
	password, err := c.readPassword("Password: ")
	if err != nil {
		return err
	}
	user, err := c.svc.Client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	c.svc.Prefs.RememberLogin(c.svc.Client.BaseURL(), user.Username, string(user.Role))
	c.savePrefs()
	return nil
}

func (c *cli) login(ctx context.Context) error {
	if err := c.signIn(ctx); err != nil {
		return err
	}
	user := c.svc.Client.User()
	fmt.Fprintf(c.stdout, "Logged in as %s (%s) on %s.\n", user.Username, user.Role, c.svc.Client.BaseURL())

	pending, ok := c.svc.Prefs.TakePendingSeat()
	if !ok {
		return nil
	}
	c.savePrefs()
	fmt.Fprintf(c.stdout, "Reserving pending seat %s.\n", pending)
	return c.reserveNow(ctx, pending)
}

func (c *cli) register(ctx context.Context) error {
	username := c.username()
	if strings.TrimSpace(c.user) == "" {
		prompted, err := c.readLine("Username: ")
		if err != nil {
			return err
		}
		username = prompted
	}
	if username == "" {
		return usagef("a username is required")
	}
	password, err := c.readPassword("Password: ")
	if err != nil {
		return err
	}
	if os.Getenv(EnvPassword) == "" {
		confirm, err := c.readPassword("Repeat password: ")
		if err != nil {
			return err
		}
		if confirm != password {
			return fmt.Errorf("%w: passwords do not match", command.ErrInvalidArgument)
		}
	}

	if err := c.svc.Accounts.Register(ctx, username, password); err != nil {
		return err
	}
	user, err := c.svc.Client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	c.svc.Prefs.RememberLogin(c.svc.Client.BaseURL(), user.Username, string(user.Role))
	c.savePrefs()
	fmt.Fprintf(c.stdout, "Registered and logged in as %s.\n", user.Username)
	return nil
}

func (c *cli) logout() error {
	name := c.svc.Prefs.LastUsername
	c.svc.Prefs.Forget()
	c.savePrefs()
	if name == "" {
		fmt.Fprintln(c.stdout, "No account was remembered.")
		return nil
	}
	fmt.Fprintf(c.stdout, "Forgot %s.\n", name)
	return nil
}

func (c *cli) reserve(ctx context.Context, seatID string) error {
	if c.username() == "" {
		c.svc.Prefs.SetPendingSeat(seatID)
		c.savePrefs()
		fmt.Fprintf(c.stdout, "Seat %s saved; it will be reserved after carrel login.\n", seatID)
		return nil
	}
	if err := c.signIn(ctx); err != nil {
		return err
	}
	return c.reserveNow(ctx, seatID)
}

// reserveNow refreshes the snapshot so the active-reservation check is
// current, then reserves.
func (c *cli) reserveNow(ctx context.Context, seatID string) error {
	if err := c.svc.Poller.RefreshNow(ctx); err != nil {
		return err
	}
	minutes := c.minutes
	if minutes <= 0 {
		minutes = c.svc.Config.DefaultMinutes
	}
	if err := c.svc.Issuer.Reserve(ctx, seatID, minutes); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Reserved %s for %d minutes.\n", seatID, minutes)
	return nil
}

func (c *cli) cancel(ctx context.Context, seatID string) error {
	if err := c.signIn(ctx); err != nil {
		return err
	}
	if err := c.svc.Poller.RefreshNow(ctx); err != nil {
		return err
	}
	snap := c.svc.Store.Snapshot()
	rec, ok := snap.Seat(seatID)
	if !ok {
		return fmt.Errorf("%w: no seat %q", command.ErrInvalidArgument, seatID)
	}
	res, owned := snap.OwnedReservation(seatID, c.svc.Client.Username())
	if !owned {
		return fmt.Errorf("%w: seat %s has no reservation of yours", command.ErrInvalidArgument, seatID)
	}
	if err := c.svc.Issuer.Cancel(ctx, res.ID); err != nil {
		return err
	}
	label := rec.ActionLabel()
	fmt.Fprintf(c.stdout, "%s done for %s.\n", strings.ToUpper(label[:1])+label[1:], seatID)
	return nil
}

func (c *cli) profile(ctx context.Context) error {
	if err := c.signIn(ctx); err != nil {
		return err
	}
	p, err := c.svc.Accounts.Profile(ctx)
	if err != nil {
		return err
	}
	card := "not bound (required to reserve)"
	if p.Bound() {
		card = p.CardID
	}
	fmt.Fprintf(c.stdout, "User  %s\nRole  %s\nCard  %s\n", p.Username, c.svc.Client.User().Role, card)
	return nil
}

func (c *cli) bind(ctx context.Context, cardID string) error {
	if err := c.signIn(ctx); err != nil {
		return err
	}
	if err := c.svc.Accounts.BindCard(ctx, cardID); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Card %s bound.\n", strings.TrimSpace(cardID))
	return nil
}

func (c *cli) logs() error {
	lines, err := logging.Tail(c.svc.Config.LogFile, c.lines)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		fmt.Fprintf(c.stdout, "No log entries in %s.\n", c.svc.Config.LogFile)
		return nil
	}
	color := false
	if f, ok := c.stdout.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	for _, line := range logging.PrettyLines(lines, color) {
		fmt.Fprintln(c.stdout, line)
	}
	return nil
}

func (c *cli) savePrefs() {
	if err := c.svc.SavePrefs(); err != nil {
		c.svc.Logger.Warn("save prefs failed", "error", err)
	}
}

// readPassword takes the password from CARREL_PASSWORD, a terminal prompt
// with echo disabled, or one line of piped input, in that order.
func (c *cli) readPassword(prompt string) (string, error) {
	if v := os.Getenv(EnvPassword); v != "" {
		return v, nil
	}
	if f, ok := c.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(c.stderr, prompt)
		data, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(data), nil
	}
	line, err := c.readRaw()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if line == "" {
		return "", fmt.Errorf("%w: empty password", command.ErrInvalidArgument)
	}
	return line, nil
}

func (c *cli) readLine(prompt string) (string, error) {
	if f, ok := c.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(c.stderr, prompt)
	}
	line, err := c.readRaw()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *cli) readRaw() (string, error) {
	if c.in == nil {
		c.in = bufio.NewReader(c.stdin)
	}
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
