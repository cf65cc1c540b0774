package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/residue/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure residue (re-run anytime to edit settings)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup(cmd)
	},
}

// runSetup runs the interactive wizard, starting from the saved config when
// there is one.
func runSetup(cmd *cobra.Command) error {
	path, err := config.GlobalPath()
	if err != nil {
		return err
	}

	var existing *config.Config
	if _, err := os.Stat(path); err == nil {
		c, err := config.Load(path)
		if err != nil {
			var pe *config.ParseError
			if !errors.As(err, &pe) {
				return err
			}
			// Broken file: start over from defaults.
			fmt.Fprintf(cmd.ErrOrStderr(), "  ⚠ %v\n", err)
		} else {
			existing = c
		}
	}

	c, err := config.RunSetup(cmd.InOrStdin(), cmd.OutOrStdout(), existing)
	if err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}
	if err := config.Save(path, *c); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "  ✓ Config saved to %s.\n", path)
	fmt.Fprintln(cmd.OutOrStdout(), "  Run 'residue start <name>' before your next install.")
	return nil
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
