package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/carsch18/opsflow/pkg/workflow"
)

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a workflow file",
		Long: `Validate a workflow document (JSON or YAML) for correctness.

This checks:
- Document structure against the workflow wire format
- Node IDs present and unique
- Edges reference existing nodes
- Branch handles (true/false) only leave branching node types
- Condition expressions compile
- Node data free of embedded credentials (advisory)

Examples:
  opsflow validate disk-remediation.yaml
  opsflow validate exported/wf-disk.json --verbose`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath := args[0]

			data, err := os.ReadFile(filePath)
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("workflow file not found: %s", filePath)
				}
				return fmt.Errorf("failed to read workflow file: %w", err)
			}

			// Schema validation catches malformed documents before the
			// structural checks run.
			if err := workflow.ValidateSchema(data); err != nil {
				_, _ = fmt.Fprintln(cmd.OutOrStderr(), "✗ Document failed schema validation")
				if verbose {
					_, _ = fmt.Fprintf(cmd.OutOrStderr(), "  Error: %v\n", err)
				}
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "✓ Document matches the workflow wire format")

			// Parse also runs the structural invariants, so a failure
			// here is a graph problem, not a decoding one.
			wf, err := workflow.Parse(data)
			if err != nil {
				_, _ = fmt.Fprintln(cmd.OutOrStderr(), "✗ Workflow validation failed")
				if verbose {
					_, _ = fmt.Fprintf(cmd.OutOrStderr(), "  Error: %v\n", err)
				}
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Parsed %d node(s) and %d edge(s)\n", len(wf.Nodes), len(wf.Edges))
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "✓ Workflow structure valid")

			// Unregistered node types render as placeholders in the
			// editor, so they warn instead of failing.
			unknown := 0
			for _, node := range wf.Nodes {
				if _, err := workflow.TypeDef(node.Type); err != nil {
					unknown++
					if verbose {
						_, _ = fmt.Fprintf(cmd.OutOrStderr(), "  Unregistered type %q on node %s\n", node.Type, node.ID)
					}
				}
			}
			if unknown > 0 {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "⚠ %d node(s) have unregistered types (workflow will still load)\n", unknown)
				if !verbose {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "  Use --verbose to see details")
				}
			}

			// Check for an alert trigger
			hasTrigger := false
			for _, node := range wf.Nodes {
				if node.Type == "alert_trigger" {
					hasTrigger = true
					break
				}
			}
			if hasTrigger {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "✓ Alert trigger found")
			} else {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "⚠ No alert_trigger node (engine cannot start this workflow from an alert)")
			}

			// Compile condition expressions
			issues := workflow.CollectExpressionIssues(wf)
			if len(issues) > 0 {
				if verbose {
					for _, issue := range issues {
						_, _ = fmt.Fprintf(cmd.OutOrStderr(), "  Node %s: %v\n", issue.NodeID, issue.Err)
					}
				}
				_, _ = fmt.Fprintln(cmd.OutOrStderr(), "✗ Some condition expressions do not compile")
				if !verbose {
					_, _ = fmt.Fprintln(cmd.OutOrStderr(), "  Use --verbose to see details")
				}
				return fmt.Errorf("expression validation failed")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "✓ Condition expressions compile")

			// Embedded secrets in node data end up in exports and
			// engine payloads, so the scan runs on every validate.
			credWarnings := workflow.ScanForCredentials(wf)
			if len(credWarnings) > 0 {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "⚠ %d possible embedded credential(s) in node data\n", len(credWarnings))
				if verbose {
					for _, w := range credWarnings {
						_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  [%s] %s: %s\n", w.Severity, w.Location, w.Message)
					}
				} else {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "  Use --verbose to see details")
				}
			}

			// Summary
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "\n✓ Workflow validation passed")
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Workflow '%s' is valid\n", wf.Name)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed validation information")

	return cmd
}
