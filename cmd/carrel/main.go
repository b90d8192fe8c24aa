package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/five82/carrel/internal/app"
)

const usage = `Usage: carrel [flags] [command] [args]

Without a command carrel opens the interactive seat map.

Commands:
  status            print the environment readings and every seat
  login             log in and reserve any pending seat
  register          create an account and log in
  logout            forget the remembered account
  reserve SEAT      reserve SEAT (saved as pending when no account is known)
  cancel SEAT       cancel or check out your reservation on SEAT
  profile           show the account and its bound card
  bind CARD         bind a card UID to the account
  logs              print the end of the interactive session's log file

Flags:
`

type globals struct {
	configPath string
	prefsPath  string
	server     string
	logLevel   string
	user       string
	poll       int
	minutes    int
	lines      int
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var g globals
	flags := pflag.NewFlagSet("carrel", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&g.configPath, "config", "", "config file path (default ~/.config/carrel/config.toml)")
	flags.StringVar(&g.prefsPath, "prefs", "", "preferences file path (default ~/.config/carrel/prefs.toml)")
	flags.StringVarP(&g.server, "server", "s", "", "server address, host:port or URL")
	flags.IntVar(&g.poll, "poll", 0, "refresh interval in seconds")
	flags.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVarP(&g.user, "user", "u", "", "account name (defaults to the last login)")
	flags.IntVarP(&g.minutes, "minutes", "m", 0, "reservation length in minutes")
	flags.IntVarP(&g.lines, "lines", "n", 40, "log lines to print, 0 for all")
	flags.Usage = func() {
		fmt.Fprint(stderr, usage)
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: g.configPath,
		PrefsPath:  g.prefsPath,
		Server:     g.server,
		PollEvery:  g.poll,
		LogLevel:   g.logLevel,
	}

	rest := flags.Args()
	if len(rest) == 0 {
		if err := app.Run(ctx, opts); err != nil {
			fmt.Fprintf(stderr, "carrel: %v\n", err)
			return 1
		}
		return 0
	}

	c := &cli{globals: g, opts: opts, stdin: stdin, stdout: stdout, stderr: stderr}
	if err := c.dispatch(ctx, rest[0], rest[1:]); err != nil {
		var usageErr usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(stderr, "carrel: %v\n\n", err)
			flags.Usage()
			return 2
		}
		fmt.Fprintf(stderr, "carrel: %s\n", describe(err))
		return 1
	}
	return 0
}
