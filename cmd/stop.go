package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/residue/internal/pidfile"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running monitoring session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := pidPath()
		if err != nil {
			return err
		}
		pid, err := pidfile.Signal(path)
		if err != nil {
			if errors.Is(err, pidfile.ErrNotRunning) {
				return fmt.Errorf("no active session")
			}
			return err
		}
		cmd.Printf("Asked monitor (pid %d) to stop.\n", pid)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
