package task

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ID is a task or subtask identifier. Persisted files mix integer and
// string scalars freely, so both decode to the textual form here; all
// comparisons downstream go through canonical references, never raw ids.
type ID string

func (i ID) String() string {
	return string(i)
}

func (i *ID) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("id must be a scalar, got %v", value.Kind)
	}
	*i = ID(value.Value)
	return nil
}

func (i *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*i = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*i = ID(n.String())
	return nil
}

// Status represents the lifecycle state of a task or subtask.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
	StatusDeferred   Status = "deferred"
	StatusCancelled  Status = "cancelled"
)

// Normalize maps the empty status to pending.
func (s Status) Normalize() Status {
	if s == "" {
		return StatusPending
	}
	return s
}

// IsComplete reports whether the status satisfies dependents. Cancelled
// work no longer blocks anything; deferred work still does.
func (s Status) IsComplete() bool {
	return s == StatusDone || s == StatusCancelled
}

// Priority represents task priority, ordered critical > high > medium > low.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Weight returns the sort weight of the priority. Unknown or empty
// priorities weigh the same as medium.
func (p Priority) Weight() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityLow:
		return 1
	default:
		return 2
	}
}
