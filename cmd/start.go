package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/residue/internal/pidfile"
)

var startFor time.Duration

var startCmd = &cobra.Command{
	Use:   "start <name>",
	Short: "Record file changes until interrupted or stopped",
	Long: `Start a monitoring session and record every file created or modified
under the watched directories. The session runs in the foreground until
Ctrl+C, 'residue stop', or the --for duration elapses.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		path, err := pidPath()
		if err != nil {
			return err
		}
		lock, err := pidfile.Acquire(path)
		if err != nil {
			if errors.Is(err, pidfile.ErrAlreadyRunning) {
				return fmt.Errorf("%w; stop it first with 'residue stop'", err)
			}
			return err
		}
		defer lock.Release()

		tr, err := openTracker()
		if err != nil {
			return err
		}
		defer tr.Close()

		if n := tr.Recover(); n > 0 {
			cmd.Printf("Recovered %d interrupted session(s).\n", n)
		}

		id, err := tr.StartSession(name)
		if err != nil {
			return err
		}
		cmd.Printf("Monitoring %q (session %s). Press Ctrl+C or run 'residue stop' to finish.\n", name, shortID(id))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if startFor > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, startFor)
			defer cancel()
		}
		<-ctx.Done()

		tr.StopSession()
		s, ok := tr.Session(id)
		if !ok {
			return fmt.Errorf("session %s disappeared", id)
		}
		cmd.Printf("Session stopped. Recorded %d files (%s).\n", len(s.Files), s.FormattedSize())
		return nil
	},
}

func init() {
	startCmd.Flags().DurationVar(&startFor, "for", 0, "stop automatically after this long (e.g. 10m)")
	rootCmd.AddCommand(startCmd)
}
