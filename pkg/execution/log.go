package execution

import (
	"strings"
	"time"
)

// logDetailBudget caps how much node output or error text a single
// log entry keeps. Shell output can run to pages; the log is a digest.
const logDetailBudget = 160

// LogEntry is one line of the execution log. Node entries carry the
// node's display name and its reported duration; run-level entries
// (transport failures, engine rejections) leave NodeID empty.
type LogEntry struct {
	Timestamp time.Time
	NodeID    string
	Name      string
	Status    Status
	Duration  time.Duration
	Detail    string
}

// RunLevel reports whether the entry describes the run as a whole
// rather than a single node.
func (e LogEntry) RunLevel() bool {
	return e.NodeID == ""
}

// truncateDetail flattens multi-line output into one line and trims it
// to the log budget.
func truncateDetail(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= logDetailBudget {
		return s
	}
	return string(runes[:logDetailBudget-1]) + "…"
}
