package workflow

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
)

// ValidateExpression checks that a condition expression compiles.
// Compilation runs with undefined variables allowed: the editor cannot
// know which fields the triggering alert will carry, so only syntax and
// operator use are checked here. The engine resolves variables at run
// time.
func ValidateExpression(source string) error {
	if strings.TrimSpace(source) == "" {
		return fmt.Errorf("expression is empty")
	}
	if _, err := expr.Compile(source, expr.AllowUndefinedVariables()); err != nil {
		return fmt.Errorf("expression does not compile: %v", err)
	}
	return nil
}

// ExpressionIssue reports a condition node whose expression failed to
// compile.
type ExpressionIssue struct {
	NodeID string
	Err    error
}

// CollectExpressionIssues compiles the expression of every condition
// node in the workflow and returns one issue per failing node. A
// condition node with no expression field set is reported too; it would
// fail at the engine.
func CollectExpressionIssues(wf *Workflow) []ExpressionIssue {
	if wf == nil {
		return nil
	}

	var issues []ExpressionIssue
	for _, node := range wf.Nodes {
		if node.Type != "condition" {
			continue
		}
		source := StringFieldValue(node.Data["expression"])
		if err := ValidateExpression(source); err != nil {
			issues = append(issues, ExpressionIssue{NodeID: node.ID, Err: err})
		}
	}
	return issues
}
