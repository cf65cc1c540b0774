package cmd

import (
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Forget a session without touching its files",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lock, err := holdIdle()
		if err != nil {
			return err
		}
		defer lock.Release()

		tr, err := openTracker()
		if err != nil {
			return err
		}
		defer tr.Close()

		s, err := findSession(tr.Sessions(), args[0])
		if err != nil {
			return err
		}
		if err := tr.DeleteSession(s.ID); err != nil {
			return err
		}
		cmd.Printf("Deleted session %q (%s). Files on disk were left in place.\n", s.Name, shortID(s.ID))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
