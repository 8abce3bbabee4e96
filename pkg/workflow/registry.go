package workflow

import (
	"fmt"

	opserrors "github.com/carsch18/opsflow/pkg/errors"
)

// Category groups node types for palette display and header coloring.
type Category string

const (
	CategoryTrigger      Category = "trigger"
	CategoryAction       Category = "action"
	CategoryLogic        Category = "logic"
	CategoryNotification Category = "notification"
	CategorySafety       Category = "safety"
)

// NodeTypeDefinition is one registry entry: display metadata plus the
// ordered configuration schema for a node type. Entries are immutable after
// process start.
type NodeTypeDefinition struct {
	Type        string
	DisplayName string
	Icon        string
	Category    Category
	Branching   bool
	Schema      []PropertyDefinition
}

// nodeTypeCatalog is the fixed catalog of remediation steps this build
// knows. Order here is palette display order. The catalog never changes at
// run time; it is indexed once below and only ever read after that.
var nodeTypeCatalog = []NodeTypeDefinition{
	{
		Type:        "alert_trigger",
		DisplayName: "Alert Trigger",
		Icon:        "⚡",
		Category:    CategoryTrigger,
		Schema: []PropertyDefinition{
			{Key: "pattern", Label: "Alert Pattern", Kind: KindString, Required: true,
				Description: "Alert name pattern that starts this workflow"},
			{Key: "severity", Label: "Minimum Severity", Kind: KindSelect,
				Options: []string{"info", "warning", "critical"}, Default: "warning"},
			{Key: "service_name", Label: "Service", Kind: KindString,
				Description: "Restrict to alerts from one service"},
		},
	},
	{
		Type:        "metric_check",
		DisplayName: "Metric Check",
		Icon:        "📊",
		Category:    CategoryLogic,
		Branching:   true,
		Schema: []PropertyDefinition{
			{Key: "metric", Label: "Metric", Kind: KindString, Required: true,
				Description: "Metric name to evaluate, e.g. system.cpu.usage"},
			{Key: "operator", Label: "Operator", Kind: KindSelect,
				Options: []string{">", ">=", "<", "<=", "=="}, Default: ">"},
			{Key: "threshold", Label: "Threshold", Kind: KindNumber, Required: true},
			{Key: "window_seconds", Label: "Window (s)", Kind: KindNumber,
				Default: float64(60), Min: floatPtr(5), Max: floatPtr(3600)},
		},
	},
	{
		Type:        "condition",
		DisplayName: "Condition",
		Icon:        "❓",
		Category:    CategoryLogic,
		Branching:   true,
		Schema: []PropertyDefinition{
			{Key: "expression", Label: "Expression", Kind: KindString, Required: true,
				Description: "Boolean expression over trigger data, e.g. severity == \"critical\""},
		},
	},
	{
		Type:        "shell_command",
		DisplayName: "Shell Command",
		Icon:        "🔧",
		Category:    CategoryAction,
		Schema: []PropertyDefinition{
			{Key: "command", Label: "Command", Kind: KindTextarea, Required: true},
			{Key: "timeout_seconds", Label: "Timeout (s)", Kind: KindNumber,
				Default: float64(60), Min: floatPtr(1), Max: floatPtr(3600)},
			{Key: "run_as", Label: "Run As", Kind: KindString,
				Description: "User account on the target host"},
			{Key: "env", Label: "Environment", Kind: KindArray,
				Description: "KEY=VALUE pairs, one per row"},
		},
	},
	{
		Type:        "restart_service",
		DisplayName: "Restart Service",
		Icon:        "🔄",
		Category:    CategoryAction,
		Schema: []PropertyDefinition{
			{Key: "service_name", Label: "Service", Kind: KindString, Required: true},
			{Key: "graceful", Label: "Graceful", Kind: KindBoolean, Default: true},
			{Key: "drain_seconds", Label: "Drain (s)", Kind: KindNumber,
				Default: float64(30), Min: floatPtr(0), Max: floatPtr(600)},
		},
	},
	{
		Type:        "wait",
		DisplayName: "Wait",
		Icon:        "⏳",
		Category:    CategoryAction,
		Schema: []PropertyDefinition{
			{Key: "duration_seconds", Label: "Duration (s)", Kind: KindNumber, Required: true,
				Default: float64(60), Min: floatPtr(1), Max: floatPtr(86400)},
		},
	},
	{
		Type:        "notify_slack",
		DisplayName: "Notify Slack",
		Icon:        "💬",
		Category:    CategoryNotification,
		Schema: []PropertyDefinition{
			{Key: "channel", Label: "Channel", Kind: KindString, Required: true,
				Default: "#incidents"},
			{Key: "message", Label: "Message", Kind: KindTextarea},
			{Key: "mention", Label: "Mention", Kind: KindMultiSelect,
				Options: []string{"@here", "@channel", "@oncall"}},
			{Key: "notify_on_resolve", Label: "Notify on Resolve", Kind: KindBoolean,
				Default: false},
		},
	},
	{
		Type:        "approval_gate",
		DisplayName: "Approval Gate",
		Icon:        "🛑",
		Category:    CategorySafety,
		Schema: []PropertyDefinition{
			{Key: "approvers", Label: "Approvers", Kind: KindArray, Required: true,
				Description: "Usernames allowed to approve, one per row"},
			{Key: "message", Label: "Prompt", Kind: KindTextarea,
				Default: "Approval required before continuing"},
			{Key: "timeout_seconds", Label: "Timeout (s)", Kind: KindNumber,
				Default: float64(900), Min: floatPtr(60), Max: floatPtr(86400)},
		},
	},
	{
		Type:        "silence_alerts",
		DisplayName: "Silence Alerts",
		Icon:        "🔕",
		Category:    CategorySafety,
		Schema: []PropertyDefinition{
			{Key: "pattern", Label: "Alert Pattern", Kind: KindString, Required: true},
			{Key: "duration_seconds", Label: "Duration (s)", Kind: KindNumber,
				Default: float64(3600), Min: floatPtr(60), Max: floatPtr(86400)},
		},
	},
}

var nodeTypesByName = func() map[string]int {
	idx := make(map[string]int, len(nodeTypeCatalog))
	for i, def := range nodeTypeCatalog {
		idx[def.Type] = i
	}
	return idx
}()

// TypeDef looks up a node type definition. A miss is an expected run-time
// condition (a workflow may reference types this build does not know) and
// is reported with ErrUnknownNodeType so callers can degrade to a
// placeholder.
func TypeDef(nodeType string) (NodeTypeDefinition, error) {
	i, ok := nodeTypesByName[nodeType]
	if !ok {
		return NodeTypeDefinition{}, fmt.Errorf("%w: %s", opserrors.ErrUnknownNodeType, nodeType)
	}
	return nodeTypeCatalog[i], nil
}

// TypeDefs returns the catalog in palette order.
func TypeDefs() []NodeTypeDefinition {
	return append([]NodeTypeDefinition(nil), nodeTypeCatalog...)
}

// IsBranching reports whether a node type emits over true/false handles.
// Unknown types are treated as non-branching.
func IsBranching(nodeType string) bool {
	def, err := TypeDef(nodeType)
	if err != nil {
		return false
	}
	return def.Branching
}

func floatPtr(f float64) *float64 {
	return &f
}
