package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/carsch18/opsflow/pkg/workflow"
)

func runSim(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewSimCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// TestSimCommandRejectsMissingWorkflowDir checks that a bad --workflows
// directory fails before anything tries to listen.
func TestSimCommandRejectsMissingWorkflowDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "absent")

	_, err := runSim(t, "--workflows", dir)
	if err == nil {
		t.Fatal("expected an error for a missing workflow directory")
	}
	if !strings.Contains(err.Error(), "failed to load workflows") {
		t.Errorf("error = %v, want load failure", err)
	}
}

// TestSimCommandRejectsBrokenDocument points --workflows at a directory
// holding an unparsable file and expects the filename in the error.
func TestSimCommandRejectsBrokenDocument(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("{nope"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := runSim(t, "--workflows", dir)
	if err == nil {
		t.Fatal("expected an error for an unparsable document")
	}
	if !strings.Contains(err.Error(), "broken.yaml") {
		t.Errorf("error = %v, want the offending filename", err)
	}
}

// TestSimCommandRejectsCollidingDocument serves a document whose id is
// already seeded.
func TestSimCommandRejectsCollidingDocument(t *testing.T) {
	dir := t.TempDir()
	wf := workflow.NewWorkflow("wf-disk-remediation", "Impostor")
	if _, err := wf.AddNode("alert_trigger", workflow.Position{}); err != nil {
		t.Fatal(err)
	}
	doc, err := workflow.ToYAML(wf)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "dup.yaml"), doc, 0644); err != nil {
		t.Fatal(err)
	}

	_, err = runSim(t, "--workflows", dir)
	if err == nil {
		t.Fatal("expected an error for a colliding workflow id")
	}
	if !strings.Contains(err.Error(), "already stored") {
		t.Errorf("error = %v, want id collision", err)
	}
}
