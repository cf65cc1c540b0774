package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/residue/internal/report"
	"github.com/fakeyudi/residue/internal/session"
	"github.com/fakeyudi/residue/internal/tui"
)

var (
	plainOutput bool
	viewFile    string
)

var viewCmd = &cobra.Command{
	Use:   "view [id]",
	Short: "Browse a session's files by category",
	Long: `Open a session in the terminal viewer. With --file, view an exported
report instead. Output falls back to plain text when stdout is not a terminal.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			r      *report.Report
			source string
		)
		switch {
		case viewFile != "":
			if len(args) > 0 {
				return fmt.Errorf("give either a session id or --file, not both")
			}
			data, err := os.ReadFile(viewFile)
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("file not found: %s", viewFile)
				}
				return err
			}
			r, err = report.ParserFor(viewFile, data).Parse(data)
			if err != nil {
				return err
			}
			source = viewFile

		case len(args) == 1:
			tr, err := openTracker()
			if err != nil {
				return err
			}
			s, err := findSession(tr.Sessions(), args[0])
			tr.Close()
			if err != nil {
				return err
			}
			r = report.Build(s, time.Now())
			source = shortID(s.ID)

		default:
			return fmt.Errorf("a session id or --file is required")
		}

		if plainOutput || !term.IsTerminal(os.Stdout.Fd()) {
			printReport(cmd.OutOrStdout(), r)
			return nil
		}
		return tui.Run(r, source)
	},
}

// printReport writes a plain-text listing grouped by category.
func printReport(w io.Writer, r *report.Report) {
	s := r.Session
	fmt.Fprintln(w, "## Summary")
	fmt.Fprintf(w, "  Name:      %s\n", s.Name)
	fmt.Fprintf(w, "  Session:   %s\n", s.ID)
	fmt.Fprintf(w, "  Started:   %s\n", s.StartTime.Format("2006-01-02 15:04:05 MST"))
	if s.EndTime != nil {
		fmt.Fprintf(w, "  Ended:     %s\n", s.EndTime.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(w, "  Duration:  %s\n", s.Duration)
	fmt.Fprintf(w, "  Files:     %d (%s)\n", s.FileCount, s.FormattedSize)
	fmt.Fprintln(w)

	if len(r.Groups) == 0 {
		fmt.Fprintln(w, "## Files")
		fmt.Fprintln(w, "  (none)")
		fmt.Fprintln(w)
		return
	}
	for _, g := range r.Groups {
		fmt.Fprintf(w, "## %s (%d, %s)\n", g.Title, len(g.Files), session.FormatBytes(g.Size))
		for _, f := range g.Files {
			fmt.Fprintf(w, "  %9s  %s\n", session.FormatBytes(f.Size), f.Path)
		}
		fmt.Fprintln(w)
	}
}

func init() {
	viewCmd.Flags().BoolVar(&plainOutput, "plain", false, "plain text output instead of TUI")
	viewCmd.Flags().StringVar(&viewFile, "file", "", "view an exported report file")
	rootCmd.AddCommand(viewCmd)
}
