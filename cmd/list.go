package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/residue/internal/pidfile"
	"github.com/fakeyudi/residue/internal/session"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List recorded sessions, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := pidPath()
		if err != nil {
			return err
		}
		_, running := pidfile.Running(path)

		tr, err := openTracker()
		if err != nil {
			return err
		}
		defer tr.Close()

		sessions := tr.Sessions()
		if len(sessions) == 0 {
			cmd.Println("no sessions recorded")
			return nil
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("ID", "NAME", "STARTED", "STATUS", "FILES", "SIZE")
		for _, s := range sessions {
			t.Row(
				shortID(s.ID),
				s.Name,
				s.StartTime.Local().Format("2006-01-02 15:04"),
				sessionStatus(s, running),
				fmt.Sprintf("%d", len(s.Files)),
				s.FormattedSize(),
			)
		}
		cmd.Println(t.String())
		return nil
	},
}

// sessionStatus labels a stored session. One marked active with no live
// monitor was cut short by a crash.
func sessionStatus(s session.Session, monitorRunning bool) string {
	switch {
	case s.Active && monitorRunning:
		return "monitoring"
	case s.Active:
		return "interrupted"
	}
	return "stopped"
}

func init() {
	rootCmd.AddCommand(listCmd)
}
