package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/residue/internal/uninstall"
)

var (
	uninstallPermanent bool
	uninstallTrash     bool
	uninstallYes       bool
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <id>",
	Short: "Remove every file a session recorded",
	Long: `Remove the files recorded by a session, deepest paths first. Files go to
the trash unless --permanent is given or uninstall_mode is "permanent". The
session is forgotten only when every file was removed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lock, err := holdIdle()
		if err != nil {
			return err
		}
		defer lock.Release()

		mode, err := uninstall.ParseMode(cfg.UninstallMode)
		if err != nil {
			return err
		}
		switch {
		case uninstallPermanent:
			mode = uninstall.ModePermanent
		case uninstallTrash:
			mode = uninstall.ModeTrash
		}

		tr, err := openTracker()
		if err != nil {
			return err
		}
		defer tr.Close()

		// No monitor is live, so anything still marked active was interrupted.
		tr.Recover()

		s, err := findSession(tr.Sessions(), args[0])
		if err != nil {
			return err
		}

		if !uninstallYes {
			action := "move to the trash"
			if mode == uninstall.ModePermanent {
				action = "PERMANENTLY delete"
			}
			cmd.Printf("This will %s %d files (%s) recorded by %q.\n", action, len(s.Files), s.FormattedSize(), s.Name)
			cmd.Print("Continue? [y/N]: ")
			line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			ans := strings.ToLower(strings.TrimSpace(line))
			if ans != "y" && ans != "yes" {
				cmd.Println("Aborted.")
				return nil
			}
		}

		n, err := tr.Uninstall(s.ID, mode, func(p uninstall.Progress) {
			cmd.Printf("[%d/%d] %s\n", p.Current, p.Total, p.Path)
		})
		var pf *uninstall.PartialFailure
		if errors.As(err, &pf) {
			cmd.Printf("Removed %d files; %d could not be removed:\n", n, len(pf.Failures))
			for _, f := range pf.Failures {
				cmd.Printf("  %v\n", f.Err)
			}
			return fmt.Errorf("uninstall incomplete: session %s kept so it can be retried", shortID(s.ID))
		}
		if err != nil {
			return err
		}
		cmd.Printf("Removed %d files (%s). Session %q deleted.\n", n, mode, s.Name)
		return nil
	},
}

func init() {
	uninstallCmd.Flags().BoolVar(&uninstallPermanent, "permanent", false, "delete files instead of moving them to the trash")
	uninstallCmd.Flags().BoolVar(&uninstallTrash, "trash", false, "move files to the trash (overrides config)")
	uninstallCmd.Flags().BoolVarP(&uninstallYes, "yes", "y", false, "do not ask for confirmation")
	uninstallCmd.MarkFlagsMutuallyExclusive("permanent", "trash")
	rootCmd.AddCommand(uninstallCmd)
}
