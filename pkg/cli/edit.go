package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carsch18/opsflow/pkg/engine"
	opserrors "github.com/carsch18/opsflow/pkg/errors"
	"github.com/carsch18/opsflow/pkg/storage"
	"github.com/carsch18/opsflow/pkg/tui"
)

// NewEditCommand creates the edit command
func NewEditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <workflow-id>",
		Short: "Edit a workflow in the TUI",
		Long: `Launch the TUI (Terminal User Interface) to edit a remediation workflow.

The workflow is fetched from the remediation engine by id. If the engine does
not know the id, the editor opens on an empty canvas so nodes can be added
from scratch.

The TUI provides:
- Visual canvas with node and edge management
- Typed property forms generated from each node type's schema
- Execution overlay with live per-node results
- Vim-style keyboard navigation (h/j/k/l)
- Context-sensitive help (press ?)

Examples:
  opsflow edit wf-disk-remediation
  opsflow edit wf-disk-remediation --engine http://engine.internal:8080`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workflowID := args[0]
			engineURL := GetEngineURL()

			// Look up a stored token for this engine. Missing tokens
			// fall back to anonymous access.
			token, err := storage.NewTokenStore().Token(engineURL)
			if err != nil && !errors.Is(err, opserrors.ErrNotFound) {
				_, _ = fmt.Fprintf(cmd.OutOrStderr(), "Warning: could not read credential for %s: %v\n", engineURL, err)
			}

			client, err := engine.NewClient(engine.Config{
				BaseURL: engineURL,
				Token:   token,
				Timeout: GetEngineTimeout(),
			})
			if err != nil {
				return fmt.Errorf("failed to create engine client: %w", err)
			}

			// Run history and exports are conveniences. A broken local
			// store should not block editing.
			history, err := storage.NewHistory(GetConfigDir())
			if err != nil {
				_, _ = fmt.Fprintf(cmd.OutOrStderr(), "Warning: run history disabled: %v\n", err)
				history = nil
			}
			if history != nil {
				defer func() { _ = history.Close() }()
			}

			exports, err := storage.NewExports(GetConfigDir())
			if err != nil {
				_, _ = fmt.Fprintf(cmd.OutOrStderr(), "Warning: exports disabled: %v\n", err)
				exports = nil
			}

			// Initialize TUI application
			app, err := tui.NewApp(tui.AppConfig{
				Client:     client,
				History:    history,
				Exports:    exports,
				WorkflowID: workflowID,
				CanvasZoom: GetCanvasZoom(),
			})
			if err != nil {
				return fmt.Errorf("failed to initialize TUI: %w", err)
			}

			// Run the TUI application
			if err := app.Run(); err != nil {
				return fmt.Errorf("TUI error: %w", err)
			}

			// Success message after TUI exits
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\nWorkflow '%s' editing session completed\n", workflowID)

			return nil
		},
	}

	return cmd
}
