package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/five82/carrel/internal/account"
	"github.com/five82/carrel/internal/command"
	"github.com/five82/carrel/internal/config"
	"github.com/five82/carrel/internal/logging"
	"github.com/five82/carrel/internal/prefs"
	"github.com/five82/carrel/internal/session"
	"github.com/five82/carrel/internal/state"
	"github.com/five82/carrel/internal/ui"
)

// Options configure a carrel run.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/carrel/prefs.toml
	Server     string // overrides every other source when set
	PollEvery  int    // seconds; zero uses config
	LogLevel   string // overrides config when set
}

// Services are the wired components shared by the TUI and the one-shot
// commands.
type Services struct {
	Config    config.Config
	Prefs     prefs.Prefs
	PrefsPath string
	Client    *session.Client
	Store     *state.Store
	Poller    *Poller
	Issuer    *command.Issuer
	Accounts  *account.Service
	Logger    *slog.Logger
}

// Build loads configuration and preferences and wires the client stack.
// It does not start polling.
func Build(opts Options, logger *slog.Logger) (*Services, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return wire(cfg, opts, logger)
}

func wire(cfg config.Config, opts Options, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.PollEvery > 0 {
		cfg.PollSeconds = opts.PollEvery
	}

	prefsPath := opts.PrefsPath
	if strings.TrimSpace(prefsPath) == "" {
		prefsPath = prefs.DefaultPath()
	}
	userPrefs, _ := prefs.Load(prefsPath)

	server := resolveServer(opts.Server, os.Getenv(config.EnvServer), userPrefs.LastServer, cfg.Server)
	client, err := session.NewClient(server, session.Options{
		Timeout: cfg.Timeout(),
		Logger:  logger.With("component", "session"),
	})
	if err != nil {
		return nil, fmt.Errorf("init session client: %w", err)
	}

	store := &state.Store{}
	poller := NewPoller(client, store, logger.With("component", "poller"))
	issuer := command.NewIssuer(client, store, poller, logger.With("component", "command"))

	return &Services{
		Config:    cfg,
		Prefs:     userPrefs,
		PrefsPath: prefsPath,
		Client:    client,
		Store:     store,
		Poller:    poller,
		Issuer:    issuer,
		Accounts:  account.New(client),
		Logger:    logger,
	}, nil
}

// SavePrefs persists the current preferences.
func (s *Services) SavePrefs() error {
	return prefs.Save(s.PrefsPath, s.Prefs)
}

// Run boots the carrel TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	// The terminal belongs to the TUI, so logs go to the configured file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level := cfg.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logger := logging.Discard()
	if logFile, err := logging.OpenFile(cfg.LogFile); err == nil {
		defer logFile.Close()
		logger = logging.New(logFile, level, logging.FormatJSON)
	}

	svc, err := wire(cfg, opts, logger)
	if err != nil {
		return err
	}
	defer svc.Poller.Wait()
	defer svc.Poller.Stop()

	logger.Info("carrel starting", "server", svc.Client.BaseURL(), "poll", svc.Config.PollInterval())

	return ui.Run(ui.Options{
		Context:        ctx,
		Session:        svc.Client,
		Sync:           svc.Poller,
		Store:          svc.Store,
		Commands:       svc.Issuer,
		Accounts:       svc.Accounts,
		Prefs:          svc.Prefs,
		PrefsPath:      svc.PrefsPath,
		PollInterval:   svc.Config.PollInterval(),
		DefaultMinutes: svc.Config.DefaultMinutes,
		Logger:         logger.With("component", "ui"),
	})
}

// resolveServer returns the first non-empty candidate.
func resolveServer(candidates ...string) string {
	for _, c := range candidates {
		if v := strings.TrimSpace(c); v != "" {
			return v
		}
	}
	return ""
}
