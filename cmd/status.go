package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/residue/internal/pidfile"
	"github.com/fakeyudi/residue/internal/session"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current monitoring session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := pidPath()
		if err != nil {
			return err
		}
		pid, running := pidfile.Running(path)

		tr, err := openTracker()
		if err != nil {
			return err
		}
		defer tr.Close()

		// The monitor is another process; its session is the stored one
		// still marked active. Counts reflect the last flush.
		s, ok := session.Session{}, false
		for _, c := range tr.Sessions() {
			if c.Active {
				s, ok = c, true
				break
			}
		}
		if !running || !ok {
			cmd.Println("no active session")
			return nil
		}

		cmd.Printf("Monitoring: %s\n", s.Name)
		cmd.Printf("Session: %s\n", s.ID)
		cmd.Printf("Monitor pid: %d\n", pid)
		cmd.Printf("Started: %s\n", s.StartTime.Format(time.RFC3339))
		cmd.Printf("Duration: %s\n", s.Duration(time.Now()).Round(time.Second).String())
		cmd.Printf("Files: %d\n", len(s.Files))
		cmd.Printf("Size: %s\n", s.FormattedSize())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
