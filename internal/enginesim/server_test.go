package enginesim

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carsch18/opsflow/pkg/engine"
	opserrors "github.com/carsch18/opsflow/pkg/errors"
	"github.com/carsch18/opsflow/pkg/workflow"
)

// newTestServer starts the simulator behind httptest and returns an
// engine client pointed at it. Most tests go through the client so
// the wire format is proven against the editor's own parser.
func newTestServer(t *testing.T) (*Server, *httptest.Server, *engine.Client) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv, err := NewServer()
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	client, err := engine.NewClient(engine.Config{BaseURL: ts.URL})
	require.NoError(t, err)

	return srv, ts, client
}

func TestPing(t *testing.T) {
	_, _, client := newTestServer(t)

	err := client.Ping(context.Background())
	assert.NoError(t, err)
}

func TestSeededWorkflows(t *testing.T) {
	srv, _, _ := newTestServer(t)

	ids := srv.WorkflowIDs()
	assert.Equal(t, []string{"wf-disk-remediation", "wf-api-restart"}, ids)
}

func TestFetchWorkflow(t *testing.T) {
	_, _, client := newTestServer(t)

	wf, err := client.FetchWorkflow(context.Background(), "wf-disk-remediation")
	require.NoError(t, err)

	assert.Equal(t, "Disk Remediation", wf.Name)
	assert.Len(t, wf.Nodes, 5)
	assert.Len(t, wf.Edges, 4)

	// The fetched document must survive the editor's own validation.
	assert.NoError(t, wf.Validate())
}

func TestFetchWorkflowNotFound(t *testing.T) {
	_, _, client := newTestServer(t)

	_, err := client.FetchWorkflow(context.Background(), "wf-ghost")
	assert.ErrorIs(t, err, opserrors.ErrNotFound)
}

func TestFetchNotFoundBody(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/workflows/wf-ghost")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "workflow not found: wf-ghost", body["error"])
}

func TestExecuteFollowsTrueBranch(t *testing.T) {
	_, _, client := newTestServer(t)

	resp, err := client.Execute(context.Background(), "wf-disk-remediation", engine.ExecuteRequest{
		TriggerData: map[string]interface{}{"disk.used_pct": 95.0},
	})
	require.NoError(t, err)

	assert.Equal(t, "completed", resp.Status)
	assert.Empty(t, resp.Error)

	require.Len(t, resp.NodeResults, 5)

	// Execution order first, skipped remainder after.
	order := make([]string, 0, len(resp.NodeResults))
	for _, nr := range resp.NodeResults {
		order = append(order, nr.NodeID)
	}
	assert.Equal(t, []string{"trigger", "check-usage", "prune-docker", "notify-oncall", "silence-noise"}, order)

	statuses := map[string]string{}
	for _, nr := range resp.NodeResults {
		statuses[nr.NodeID] = nr.Status
	}
	assert.Equal(t, "success", statuses["check-usage"])
	assert.Equal(t, "success", statuses["prune-docker"])
	assert.Equal(t, "skipped", statuses["silence-noise"])
}

func TestExecuteFollowsFalseBranch(t *testing.T) {
	_, _, client := newTestServer(t)

	resp, err := client.Execute(context.Background(), "wf-disk-remediation", engine.ExecuteRequest{
		TriggerData: map[string]interface{}{"disk.used_pct": 42.0},
	})
	require.NoError(t, err)

	statuses := map[string]string{}
	for _, nr := range resp.NodeResults {
		statuses[nr.NodeID] = nr.Status
	}
	assert.Equal(t, "success", statuses["silence-noise"])
	assert.Equal(t, "skipped", statuses["prune-docker"])
	assert.Equal(t, "skipped", statuses["notify-oncall"])
}

func TestExecuteMissingMetricFailsNode(t *testing.T) {
	_, _, client := newTestServer(t)

	resp, err := client.Execute(context.Background(), "wf-disk-remediation", engine.ExecuteRequest{})
	require.NoError(t, err)

	// The run still completes; the failure lives on the node.
	assert.Equal(t, "completed", resp.Status)

	byID := map[string]engine.NodeResult{}
	for _, nr := range resp.NodeResults {
		byID[nr.NodeID] = nr
	}

	check := byID["check-usage"]
	assert.Equal(t, "failed", check.Status)
	assert.Equal(t, `metric "disk.used_pct" not present in trigger data`, check.Error)

	assert.Equal(t, "skipped", byID["prune-docker"].Status)
	assert.Equal(t, "skipped", byID["notify-oncall"].Status)
	assert.Equal(t, "skipped", byID["silence-noise"].Status)
}

func TestExecuteInjectedFailure(t *testing.T) {
	_, _, client := newTestServer(t)

	resp, err := client.Execute(context.Background(), "wf-disk-remediation", engine.ExecuteRequest{
		TriggerData: map[string]interface{}{
			"disk.used_pct": 95.0,
			"fail_node":     "prune-docker",
		},
	})
	require.NoError(t, err)

	byID := map[string]engine.NodeResult{}
	for _, nr := range resp.NodeResults {
		byID[nr.NodeID] = nr
	}

	assert.Equal(t, "failed", byID["prune-docker"].Status)
	assert.Contains(t, byID["prune-docker"].Error, "injected failure")
	assert.Equal(t, "skipped", byID["notify-oncall"].Status)
}

func TestExecuteDryRun(t *testing.T) {
	_, _, client := newTestServer(t)

	resp, err := client.Execute(context.Background(), "wf-disk-remediation", engine.ExecuteRequest{
		TriggerData: map[string]interface{}{"disk.used_pct": 95.0},
		DryRun:      true,
	})
	require.NoError(t, err)

	for _, nr := range resp.NodeResults {
		if nr.Status != "success" {
			continue
		}
		assert.True(t, strings.HasPrefix(nr.Output, "dry run: "), "output %q should be marked as dry run", nr.Output)
		assert.Zero(t, nr.DurationMS)
	}
}

func TestExecuteConditionEscalates(t *testing.T) {
	_, _, client := newTestServer(t)

	// Critical alert with an error rate that stays elevated after the
	// restart: the verify check fails its threshold and escalates.
	resp, err := client.Execute(context.Background(), "wf-api-restart", engine.ExecuteRequest{
		TriggerData: map[string]interface{}{
			"severity":   "critical",
			"error_rate": 0.09,
		},
	})
	require.NoError(t, err)

	byID := map[string]engine.NodeResult{}
	for _, nr := range resp.NodeResults {
		byID[nr.NodeID] = nr
	}

	assert.Equal(t, "success", byID["check-critical"].Status)
	assert.Equal(t, "success", byID["restart-api"].Status)
	assert.Equal(t, "success", byID["escalate"].Status)
	assert.Equal(t, "skipped", byID["notify-resolved"].Status)
	assert.Equal(t, "skipped", byID["notify-watch"].Status)
}

func TestExecuteConditionFalseBranch(t *testing.T) {
	_, _, client := newTestServer(t)

	resp, err := client.Execute(context.Background(), "wf-api-restart", engine.ExecuteRequest{
		TriggerData: map[string]interface{}{
			"severity":   "warning",
			"error_rate": 0.02,
		},
	})
	require.NoError(t, err)

	byID := map[string]engine.NodeResult{}
	for _, nr := range resp.NodeResults {
		byID[nr.NodeID] = nr
	}

	assert.Equal(t, "success", byID["notify-watch"].Status)
	assert.Equal(t, "skipped", byID["restart-api"].Status)
	assert.Equal(t, "skipped", byID["settle"].Status)
}

func TestClone(t *testing.T) {
	_, _, client := newTestServer(t)

	cloned, err := client.Clone(context.Background(), "wf-disk-remediation")
	require.NoError(t, err)

	assert.NotEmpty(t, cloned.ID)
	assert.NotEqual(t, "wf-disk-remediation", cloned.ID)
	assert.Equal(t, "Copy of Disk Remediation", cloned.Name)

	// The clone is immediately fetchable and structurally identical.
	wf, err := client.FetchWorkflow(context.Background(), cloned.ID)
	require.NoError(t, err)
	assert.Len(t, wf.Nodes, 5)
	assert.Len(t, wf.Edges, 4)
	assert.NoError(t, wf.Validate())
}

func TestCloneNotFound(t *testing.T) {
	_, _, client := newTestServer(t)

	_, err := client.Clone(context.Background(), "wf-ghost")
	assert.Error(t, err)
}

func TestSimulateRunWithoutTrigger(t *testing.T) {
	wf := workflow.NewWorkflow("wf-headless", "No Trigger")
	wf.Nodes = append(wf.Nodes, &workflow.Node{
		ID:   "lonely",
		Type: "wait",
		Data: map[string]interface{}{"duration_seconds": float64(5)},
	})

	result := simulateRun(wf, nil, false)

	assert.Equal(t, "failed", result.Status)
	assert.Equal(t, "workflow has no alert_trigger node", result.Error)
	assert.Empty(t, result.NodeResults)
}

func TestSimulateRunUnknownType(t *testing.T) {
	wf := workflow.NewWorkflow("wf-exotic", "Exotic")
	wf.Nodes = append(wf.Nodes,
		&workflow.Node{
			ID:   "trigger",
			Type: "alert_trigger",
			Data: map[string]interface{}{"pattern": "x.*"},
		},
		&workflow.Node{
			ID:   "mystery",
			Type: "page_oncall",
		},
	)
	require.NoError(t, wf.AddEdge(&workflow.Edge{
		ID:     "edge-1",
		Source: "trigger",
		Target: "mystery",
	}))

	result := simulateRun(wf, nil, false)

	require.Len(t, result.NodeResults, 2)
	mystery := result.NodeResults[1]
	assert.Equal(t, "mystery", mystery.nodeID)
	assert.Equal(t, "success", mystery.outcome.Status)
	assert.Contains(t, mystery.outcome.Output, "page_oncall")
}

func TestOrderedResultsMarshal(t *testing.T) {
	results := orderedResults{
		{nodeID: "zebra", outcome: nodeOutcome{Status: "success"}},
		{nodeID: "alpha", outcome: nodeOutcome{Status: "failed", Error: "boom"}},
	}

	data, err := json.Marshal(results)
	require.NoError(t, err)

	// Keys must keep insertion order, not sort order.
	zebra := strings.Index(string(data), `"zebra"`)
	alpha := strings.Index(string(data), `"alpha"`)
	require.NotEqual(t, -1, zebra)
	require.NotEqual(t, -1, alpha)
	assert.Less(t, zebra, alpha)
}

func TestExecuteNotFound(t *testing.T) {
	_, _, client := newTestServer(t)

	_, err := client.Execute(context.Background(), "wf-ghost", engine.ExecuteRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, opserrors.ErrRemoteUnavailable))
	assert.Contains(t, err.Error(), "workflow not found: wf-ghost")
}

func TestAddWorkflow(t *testing.T) {
	srv, _, client := newTestServer(t)

	wf := workflow.NewWorkflow("wf-extra", "Loaded From Disk")
	_, err := wf.AddNode("alert_trigger", workflow.Position{X: 40, Y: 40})
	require.NoError(t, err)

	require.NoError(t, srv.AddWorkflow(wf))
	assert.Contains(t, srv.WorkflowIDs(), "wf-extra")

	fetched, err := client.FetchWorkflow(context.Background(), "wf-extra")
	require.NoError(t, err)
	assert.Equal(t, "Loaded From Disk", fetched.Name)
}

func TestAddWorkflowRejectsCollision(t *testing.T) {
	srv, _, _ := newTestServer(t)

	dup := workflow.NewWorkflow("wf-disk-remediation", "Impostor")
	err := srv.AddWorkflow(dup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already stored")

	require.Error(t, srv.AddWorkflow(nil))
	require.Error(t, srv.AddWorkflow(workflow.NewWorkflow("", "No ID")))
}
