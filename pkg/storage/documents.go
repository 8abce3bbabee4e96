package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/carsch18/opsflow/pkg/workflow"
)

// ReadWorkflowDir loads every workflow document in dir, in filename
// order. Files ending in .yaml, .yml, or .json go through the wire
// codec; everything else is skipped. A file that fails to parse or
// describes a structurally invalid graph fails the whole read, named,
// so a bad document surfaces at startup instead of as an editor bug.
func ReadWorkflowDir(dir string) ([]*workflow.Workflow, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow directory: %w", err)
	}

	workflows := make([]*workflow.Workflow, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isWorkflowDocument(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		wf, err := workflow.ParseFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		if err := wf.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		workflows = append(workflows, wf)
	}
	return workflows, nil
}

func isWorkflowDocument(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
