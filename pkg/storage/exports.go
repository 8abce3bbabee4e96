package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/carsch18/opsflow/pkg/workflow"
)

// Exports writes workflow snapshots to disk as YAML. The engine owns
// the canonical copy; exports are read-only artifacts for review,
// diffing, and runbook attachments.
type Exports struct {
	dir string
}

// NewExports creates the export directory under the config directory.
// Files land in <configDir>/exports/
func NewExports(configDir string) (*Exports, error) {
	dir := filepath.Join(configDir, "exports")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create exports directory: %w", err)
	}
	return &Exports{dir: dir}, nil
}

// WriteWorkflow exports a workflow as <id>.yaml and returns the path.
// The write goes through a temp file and rename so a crash never
// leaves a half-written export behind.
func (e *Exports) WriteWorkflow(wf *workflow.Workflow) (string, error) {
	if wf == nil {
		return "", fmt.Errorf("cannot export nil workflow")
	}
	if wf.ID == "" {
		return "", fmt.Errorf("workflow must have an id")
	}

	data, err := workflow.ToYAML(wf)
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow: %w", err)
	}

	path := filepath.Join(e.dir, sanitizeFilename(wf.ID)+".yaml")
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("failed to save export file: %w", err)
	}

	return path, nil
}

// List returns the exported workflow files, by name.
func (e *Exports) List() ([]string, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read exports directory: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		files = append(files, filepath.Join(e.dir, entry.Name()))
	}
	return files, nil
}

// sanitizeFilename strips path separators from an id before it
// becomes a filename.
func sanitizeFilename(id string) string {
	id = strings.ReplaceAll(id, string(os.PathSeparator), "_")
	return strings.ReplaceAll(id, "..", "_")
}
