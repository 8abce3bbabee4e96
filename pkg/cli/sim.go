package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carsch18/opsflow/internal/enginesim"
	"github.com/carsch18/opsflow/pkg/storage"
)

// NewSimCommand creates the engine simulator command
func NewSimCommand() *cobra.Command {
	var (
		addr         string
		workflowsDir string
	)

	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Run a local engine simulator",
		Long: `Run a local simulator of the remediation engine's HTTP API.

The simulator serves seeded demo workflows and fabricates execution
results, so the editor can be tried without a real engine. Branching
nodes evaluate against the trigger data sent with each run; setting
"fail_node" in the trigger data forces that node to fail.

With --workflows, documents (YAML or JSON) from the given directory are
served alongside the demos. Pointing it at the exports directory lets
an exported graph be reopened in the editor.

The simulator requires no authentication and executes nothing for real.

Examples:
  opsflow sim
  opsflow sim --addr :9090
  opsflow sim --workflows ~/.opsflow/exports

  # In another terminal:
  opsflow edit wf-disk-remediation --engine http://localhost:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := enginesim.NewServer()
			if err != nil {
				return fmt.Errorf("failed to create simulator: %w", err)
			}

			if workflowsDir != "" {
				extra, err := storage.ReadWorkflowDir(workflowsDir)
				if err != nil {
					return fmt.Errorf("failed to load workflows: %w", err)
				}
				for _, wf := range extra {
					if err := srv.AddWorkflow(wf); err != nil {
						return fmt.Errorf("failed to load workflows: %w", err)
					}
				}
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Engine simulator listening on %s\n", addr)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Seeded workflows:")
			for _, id := range srv.WorkflowIDs() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", id)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout())

			if err := srv.Run(addr); err != nil {
				return fmt.Errorf("simulator failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Address to listen on")
	cmd.Flags().StringVar(&workflowsDir, "workflows", "", "Directory of workflow documents to serve in addition to the demos")

	return cmd
}
