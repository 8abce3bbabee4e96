package workflow

import (
	"testing"
)

const sampleYAML = `
id: wf-cpu-remediation
name: High CPU remediation
nodes:
  - id: trigger-1
    type: alert_trigger
    position: {x: 40, y: 160}
    data:
      pattern: cpu_usage_high
      severity: critical
  - id: check-1
    type: metric_check
    position: {x: 320, y: 160}
    data:
      metric: system.cpu.usage
      operator: ">"
      threshold: 90
  - id: restart-1
    type: restart_service
    position: {x: 620, y: 80}
    data:
      service_name: nginx
  - id: notify-1
    type: notify_slack
    position: {x: 620, y: 260}
    data:
      channel: "#incidents"
edges:
  - id: e-1
    source: trigger-1
    target: check-1
  - id: e-2
    source: check-1
    target: restart-1
    sourceHandle: "true"
    label: "true"
  - source: check-1
    target: notify-1
    sourceHandle: "false"
    label: "false"
`

const sampleJSON = `{
  "id": "wf-disk",
  "name": "Disk pressure",
  "nodes": [
    {"id": "t1", "type": "alert_trigger", "position": {"x": 0, "y": 0},
     "data": {"pattern": "disk_full"}},
    {"id": "c1", "type": "shell_command", "position": {"x": 280, "y": 0},
     "data": {"command": "docker system prune -f"}}
  ],
  "edges": [
    {"id": "e1", "source": "t1", "target": "c1"}
  ]
}`

func TestParseYAMLDocument(t *testing.T) {
	wf, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if wf.ID != "wf-cpu-remediation" {
		t.Errorf("ID = %q", wf.ID)
	}
	if len(wf.Nodes) != 4 || len(wf.Edges) != 3 {
		t.Fatalf("got %d nodes %d edges, want 4 and 3", len(wf.Nodes), len(wf.Edges))
	}

	check, err := wf.Node("check-1")
	if err != nil {
		t.Fatalf("Node(check-1): %v", err)
	}
	if check.Position.X != 320 {
		t.Errorf("position.x = %v, want 320", check.Position.X)
	}
	if check.Data["operator"] != ">" {
		t.Errorf("operator = %v", check.Data["operator"])
	}

	// The third edge carries no id in the document; parsing fills one in.
	if wf.Edges[2].ID == "" {
		t.Error("edge without document id should be assigned one")
	}
	if wf.Edges[2].SourceHandle != HandleFalse {
		t.Errorf("sourceHandle = %q, want false", wf.Edges[2].SourceHandle)
	}
}

func TestParseJSONDocument(t *testing.T) {
	wf, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if wf.Name != "Disk pressure" {
		t.Errorf("Name = %q", wf.Name)
	}
	cmd, err := wf.Node("c1")
	if err != nil {
		t.Fatalf("Node(c1): %v", err)
	}
	if cmd.Data["command"] != "docker system prune -f" {
		t.Errorf("command = %v", cmd.Data["command"])
	}
}

func TestParseRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "empty input", doc: ""},
		{name: "missing id", doc: "name: x\nnodes: []\nedges: []\n"},
		{name: "missing name", doc: "id: wf-1\nnodes: []\nedges: []\n"},
		{name: "dangling edge", doc: `
id: wf-1
name: bad
nodes:
  - {id: a, type: wait, position: {x: 0, y: 0}}
edges:
  - {id: e1, source: a, target: ghost}
`},
		{name: "not yaml or json", doc: "\x01\x02\x03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); err == nil {
				t.Error("expected parse failure")
			}
		})
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	wf, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	out, err := ToYAML(wf)
	if err != nil {
		t.Fatalf("ToYAML: %v", err)
	}

	back, err := Parse(out)
	if err != nil {
		t.Fatalf("re-Parse: %v", err)
	}

	if back.ID != wf.ID || back.Name != wf.Name {
		t.Errorf("identity changed across round trip: %s/%s", back.ID, back.Name)
	}
	if len(back.Nodes) != len(wf.Nodes) || len(back.Edges) != len(wf.Edges) {
		t.Errorf("shape changed: %d/%d nodes, %d/%d edges",
			len(back.Nodes), len(wf.Nodes), len(back.Edges), len(wf.Edges))
	}
	node, err := back.Node("notify-1")
	if err != nil {
		t.Fatalf("Node(notify-1): %v", err)
	}
	if node.Data["channel"] != "#incidents" {
		t.Errorf("channel = %v after round trip", node.Data["channel"])
	}
}

func TestToJSON(t *testing.T) {
	wf, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out, err := ToJSON(wf)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	back, err := Parse(out)
	if err != nil {
		t.Fatalf("re-Parse: %v", err)
	}
	if len(back.Nodes) != 2 {
		t.Errorf("got %d nodes after round trip, want 2", len(back.Nodes))
	}
}
