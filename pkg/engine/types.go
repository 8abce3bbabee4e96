package engine

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// ExecuteRequest is the body sent when starting a workflow run.
type ExecuteRequest struct {
	TriggerData map[string]interface{} `json:"trigger_data"`
	DryRun      bool                   `json:"dry_run"`
}

// NodeResult is the engine's verdict for a single node in a run.
type NodeResult struct {
	NodeID     string `json:"node_id"`
	Status     string `json:"status"`
	Output     string `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// ExecuteResponse is the engine's batch result for a whole run.
// NodeResults preserves the order in which the engine reported them;
// the engine emits them in execution order and the run log depends on it.
type ExecuteResponse struct {
	Status      string
	DurationMS  int64
	NodeResults []NodeResult
	Error       string
}

// CloneResponse is the summary returned for a copied workflow.
type CloneResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ParseExecuteResponse decodes an execute response body. The wire format
// keys node_results by node id; encoding/json would shuffle those keys
// into a map, so the object is walked with gjson to keep document order.
func ParseExecuteResponse(body []byte) (*ExecuteResponse, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("engine returned malformed JSON")
	}

	root := gjson.ParseBytes(body)
	resp := &ExecuteResponse{
		Status:     root.Get("status").String(),
		DurationMS: root.Get("duration_ms").Int(),
		Error:      root.Get("error").String(),
	}

	root.Get("node_results").ForEach(func(key, value gjson.Result) bool {
		resp.NodeResults = append(resp.NodeResults, NodeResult{
			NodeID:     key.String(),
			Status:     value.Get("status").String(),
			Output:     value.Get("output").String(),
			Error:      value.Get("error").String(),
			DurationMS: value.Get("duration_ms").Int(),
		})
		return true
	})

	return resp, nil
}
