package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/carsch18/opsflow/pkg/execution"
	"github.com/carsch18/opsflow/pkg/storage"
)

// NewHistoryCommand creates the run history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded workflow runs",
		Long: `Inspect workflow runs recorded by the editor.

Every execution triggered from the TUI is archived locally with its
per-node results, so past runs can be reviewed after the editor exits.`,
	}

	cmd.AddCommand(newHistoryListCommand())
	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistoryPruneCommand())

	return cmd
}

// newHistoryListCommand creates the history list subcommand
func newHistoryListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list <workflow-id>",
		Short: "List recorded runs for a workflow",
		Long: `List the most recent recorded runs for a workflow, newest first.

Examples:
  opsflow history list wf-disk-remediation
  opsflow history list wf-disk-remediation --limit 50`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workflowID := args[0]

			history, err := storage.NewHistory(GetConfigDir())
			if err != nil {
				return fmt.Errorf("failed to open run history: %w", err)
			}
			defer func() { _ = history.Close() }()

			runs, err := history.ListRuns(workflowID, limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			if len(runs) == 0 {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No recorded runs for workflow '%s'.\n", workflowID)
				return nil
			}

			printRunsTable(runs)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to display")

	return cmd
}

// newHistoryShowCommand creates the history show subcommand
func newHistoryShowCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Display a recorded run in detail",
		Long: `Display a recorded run including its per-node log entries.

Examples:
  opsflow history show run-3fa8c2d1
  opsflow history show run-3fa8c2d1 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := args[0]

			history, err := storage.NewHistory(GetConfigDir())
			if err != nil {
				return fmt.Errorf("failed to open run history: %w", err)
			}
			defer func() { _ = history.Close() }()

			rec, err := history.LoadRun(runID)
			if err != nil {
				return fmt.Errorf("failed to load run: %w", err)
			}

			if asJSON {
				return printRunJSON(rec)
			}

			printRunDetail(rec)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output run details as JSON")

	return cmd
}

// newHistoryPruneCommand creates the history prune subcommand
func newHistoryPruneCommand() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune <workflow-id>",
		Short: "Delete old recorded runs for a workflow",
		Long: `Delete recorded runs for a workflow, keeping only the newest.

Examples:
  opsflow history prune wf-disk-remediation --keep 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workflowID := args[0]

			if keep < 0 {
				return fmt.Errorf("--keep must be zero or positive")
			}

			history, err := storage.NewHistory(GetConfigDir())
			if err != nil {
				return fmt.Errorf("failed to open run history: %w", err)
			}
			defer func() { _ = history.Close() }()

			removed, err := history.PruneRuns(workflowID, keep)
			if err != nil {
				return fmt.Errorf("failed to prune runs: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s), kept the newest %d\n", removed, keep)
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 20, "Number of newest runs to keep")

	return cmd
}

// printRunsTable displays runs in a formatted table
func printRunsTable(runs []execution.RunRecord) {
	fmt.Printf("%-14s %-20s %-10s %-8s %-10s %s\n",
		"RUN", "OUTCOME", "DURATION", "DRY", "NODES", "STARTED")

	for _, rec := range runs {
		dry := "no"
		if rec.DryRun {
			dry = "yes"
		}

		fmt.Printf("%-14s %-30s %-10s %-8s %-10d %s\n",
			truncateString(rec.RunID, 12),
			colorizeOutcome(rec.Outcome),
			formatDurationValue(rec.Duration),
			dry,
			countNodeEntries(rec),
			rec.StartedAt.Format("2006-01-02 15:04"))
	}
}

// printRunDetail displays detailed run information
func printRunDetail(rec execution.RunRecord) {
	fmt.Printf("Run: %s\n", colorCyan+rec.RunID+colorReset)
	fmt.Printf("Workflow: %s\n", rec.WorkflowID)
	fmt.Printf("Outcome: %s\n", colorizeOutcome(rec.Outcome))
	if rec.DryRun {
		fmt.Println("Mode: dry run")
	}
	fmt.Printf("Started: %s\n", rec.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Duration: %s\n", formatDurationValue(rec.Duration))
	fmt.Println()

	if rec.Error != "" {
		fmt.Printf("%sError:%s %s\n\n", colorRed, colorReset, rec.Error)
	}

	if len(rec.Entries) > 0 {
		fmt.Println("Node Results:")
		for _, entry := range rec.Entries {
			if entry.RunLevel() {
				fmt.Printf("  %s run: %s\n", nodeSymbol(entry.Status), entry.Detail)
				continue
			}

			fmt.Printf("  %s %-22s %-8s %s\n",
				nodeSymbol(entry.Status),
				truncateString(entry.Name, 22),
				formatDurationValue(entry.Duration),
				entry.Detail)
		}
	}
}

// printRunJSON outputs a run record as JSON
func printRunJSON(rec execution.RunRecord) error {
	entries := make([]map[string]interface{}, len(rec.Entries))
	for i, entry := range rec.Entries {
		entries[i] = map[string]interface{}{
			"timestamp":   entry.Timestamp,
			"node_id":     entry.NodeID,
			"name":        entry.Name,
			"status":      entry.Status,
			"duration_ms": entry.Duration.Milliseconds(),
			"detail":      entry.Detail,
		}
	}

	output := map[string]interface{}{
		"run_id":      rec.RunID,
		"workflow_id": rec.WorkflowID,
		"dry_run":     rec.DryRun,
		"outcome":     rec.Outcome,
		"started_at":  rec.StartedAt,
		"duration_ms": rec.Duration.Milliseconds(),
		"entries":     entries,
	}
	if rec.Error != "" {
		output["error"] = rec.Error
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// Helper functions

// countNodeEntries counts per-node log entries, excluding run-level ones
func countNodeEntries(rec execution.RunRecord) int {
	n := 0
	for _, entry := range rec.Entries {
		if !entry.RunLevel() {
			n++
		}
	}
	return n
}

// colorizeOutcome returns a colored outcome string
func colorizeOutcome(outcome execution.Outcome) string {
	switch outcome {
	case execution.OutcomeSucceeded:
		return colorGreen + string(outcome) + colorReset
	case execution.OutcomeFailed:
		return colorRed + string(outcome) + colorReset
	default:
		return string(outcome)
	}
}

// nodeSymbol returns a status symbol for a log entry
func nodeSymbol(status execution.Status) string {
	switch status {
	case execution.StatusSuccess:
		return colorGreen + "✓" + colorReset
	case execution.StatusFailed:
		return colorRed + "✗" + colorReset
	case execution.StatusRunning:
		return colorYellow + "●" + colorReset
	case execution.StatusSkipped, execution.StatusPending:
		return colorGray + "○" + colorReset
	default:
		return " "
	}
}

// formatDurationValue formats a duration value
func formatDurationValue(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-2] + ".."
}
