package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/residue/internal/config"
	"github.com/fakeyudi/residue/internal/logging"
	"github.com/fakeyudi/residue/internal/pidfile"
	"github.com/fakeyudi/residue/internal/session"
	"github.com/fakeyudi/residue/internal/tracker"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg = config.Defaults()

// logger is built from cfg in PersistentPreRunE.
var logger = logging.Discard()

var (
	flagLogLevel  string
	flagLogFormat string
)

// watcherFactory overrides the fsnotify watcher; tests swap it for a fake.
var watcherFactory tracker.WatcherFactory

var rootCmd = &cobra.Command{
	Use:          "residue",
	Short:        "Track the files an installer leaves behind and remove them later",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup check for the setup command itself.
		if cmd.Name() == "setup" {
			return nil
		}

		// First run: no config file yet. Only prompt on an interactive terminal.
		if path, err := config.GlobalPath(); err == nil {
			if _, err := os.Stat(path); os.IsNotExist(err) && term.IsTerminal(os.Stdin.Fd()) {
				fmt.Fprintln(cmd.OutOrStdout())
				fmt.Fprintln(cmd.OutOrStdout(), "  Welcome to residue! Looks like this is your first time.")
				if err := runSetup(cmd); err != nil {
					return err
				}
			}
		}

		global, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = config.Merge(global, &config.Config{LogLevel: flagLogLevel, LogFormat: flagLogFormat})
		if err := cfg.Validate(); err != nil {
			return err
		}

		l, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// dataDir is where sessions and the pid file live.
func dataDir() (string, error) {
	if cfg.DataDir != "" {
		return cfg.DataDir, nil
	}
	return session.DataDir()
}

func pidPath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return pidfile.Path(dir), nil
}

// openTracker loads the session collection. The data and config directories
// are never recorded.
func openTracker() (*tracker.Tracker, error) {
	dir, err := dataDir()
	if err != nil {
		return nil, err
	}
	store, err := session.NewStoreAt(afero.NewOsFs(), dir)
	if err != nil {
		return nil, err
	}

	excluded := []string{dir}
	if cfgDir, err := config.Dir(); err == nil {
		excluded = append(excluded, cfgDir)
	}
	opts := []tracker.Option{
		tracker.WithLogger(logger),
		tracker.WithFlushInterval(cfg.FlushInterval),
		tracker.WithExcludedDirs(excluded...),
	}
	if watcherFactory != nil {
		opts = append(opts, tracker.WithWatcherFactory(watcherFactory))
	}
	return tracker.New(store, opts...)
}

// holdIdle takes the pid lock for a command that changes stored sessions, so
// no monitor can start until the returned lock is released.
func holdIdle() (*pidfile.Lock, error) {
	path, err := pidPath()
	if err != nil {
		return nil, err
	}
	lock, err := pidfile.Hold(path)
	if errors.Is(err, pidfile.ErrAlreadyRunning) {
		return nil, fmt.Errorf("%w; stop it first with 'residue stop'", err)
	}
	return lock, err
}

// findSession resolves ref as a full id or a unique id prefix.
func findSession(sessions []session.Session, ref string) (session.Session, error) {
	var matches []session.Session
	for _, s := range sessions {
		if s.ID == ref {
			return s, nil
		}
		if strings.HasPrefix(s.ID, ref) {
			matches = append(matches, s)
		}
	}
	switch {
	case ref == "" || len(matches) == 0:
		return session.Session{}, fmt.Errorf("session %q not found", ref)
	case len(matches) > 1:
		return session.Session{}, fmt.Errorf("session id %q is ambiguous (%d matches)", ref, len(matches))
	}
	return matches[0], nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: text or json (overrides config)")
}
