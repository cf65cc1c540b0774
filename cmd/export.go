package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/residue/internal/report"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Write a session report as Markdown, JSON or YAML",
	Long: `Render a session as a report. Without --output the report goes to stdout;
with --output it is written into that directory as residue-<id><ext>.
Reports can be opened again with 'residue view --file'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		renderer, err := report.RendererFor(exportFormat)
		if err != nil {
			return err
		}

		tr, err := openTracker()
		if err != nil {
			return err
		}
		s, err := findSession(tr.Sessions(), args[0])
		tr.Close()
		if err != nil {
			return err
		}

		data, err := renderer.Render(report.Build(s, time.Now()))
		if err != nil {
			return fmt.Errorf("render report: %w", err)
		}

		if exportOutput == "" {
			_, err := cmd.OutOrStdout().Write(data)
			return err
		}

		if err := os.MkdirAll(exportOutput, 0o755); err != nil {
			return err
		}
		outputPath := filepath.Join(exportOutput, "residue-"+shortID(s.ID)+renderer.Ext())
		if err := os.WriteFile(outputPath, data, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		cmd.Printf("Report written to %s\n", outputPath)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "markdown", "report format: markdown, json or yaml")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "directory to write the report into (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
