package taskgraph

import "fmt"

// State is the lifecycle state of one task.
type State int

const (
	Pending State = iota
	Running
	Completed
	Failed
	Skipped
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// IsTerminal reports whether the state is final.
func (s State) IsTerminal() bool {
	return s == Completed || s == Failed || s == Skipped
}

func allowedTransition(from, to State) bool {
	switch from {
	case Pending:
		return to == Running || to == Skipped
	case Running:
		return to == Completed || to == Failed
	default:
		return false
	}
}
