package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/carsch18/opsflow/pkg/storage"
	"github.com/carsch18/opsflow/pkg/workflow"
)

// NewExportsCommand creates the exports listing command
func NewExportsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exports",
		Short: "List exported workflow snapshots",
		Long: `List the workflow snapshots exported from the editor.

Exports are YAML files written with 's' in the TUI. They are read-only
artifacts for review and diffing; the engine keeps the canonical copy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exports, err := storage.NewExports(GetConfigDir())
			if err != nil {
				return fmt.Errorf("failed to open exports directory: %w", err)
			}

			files, err := exports.List()
			if err != nil {
				return fmt.Errorf("failed to list exports: %w", err)
			}

			if len(files) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No exported workflows.")
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "\nExport one from the editor with 's', or see: opsflow edit --help")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "FILE\tWORKFLOW\tNODES\tMODIFIED")

			for _, path := range files {
				name := "-"
				nodes := "-"
				if wf, err := workflow.ParseFile(path); err == nil {
					name = wf.Name
					nodes = fmt.Sprintf("%d", len(wf.Nodes))
				}

				modified := "-"
				if info, err := os.Stat(path); err == nil {
					modified = info.ModTime().Format("2006-01-02 15:04")
				}

				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", filepath.Base(path), name, nodes, modified)
			}

			return w.Flush()
		},
	}

	return cmd
}
