package graph

import (
	"strconv"
	"strings"

	"github.com/kazz187/taskdeps/internal/task"
)

// Ref is the canonical form of a task or subtask reference. Raw ids are
// normalized exactly once at the graph boundary; everything inside the
// engine compares Refs, never raw strings or numbers.
type Ref struct {
	Parent string // empty for top-level tasks
	ID     string
}

// ParseRef normalizes a raw reference. A bare id ("3") denotes a task,
// a compound id ("3.2") a subtask. Numeric ids are canonicalized so the
// string "03" and the number 3 compare equal. ParseRef never fails:
// malformed input (e.g. "1.2.3") yields a Ref that resolves to nothing,
// which the validator reports as a missing dependency.
func ParseRef(raw string) Ref {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "."); i >= 0 {
		return Ref{Parent: canonicalPart(s[:i]), ID: canonicalPart(s[i+1:])}
	}
	return Ref{ID: canonicalPart(s)}
}

// ParseID normalizes a persisted id value.
func ParseID(id task.ID) Ref {
	return ParseRef(string(id))
}

func canonicalPart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if n, err := strconv.Atoi(s); err == nil {
		return strconv.Itoa(n)
	}
	return s
}

// IsSubtask reports whether the reference names a subtask.
func (r Ref) IsSubtask() bool {
	return r.Parent != ""
}

// IsZero reports whether the reference is empty.
func (r Ref) IsZero() bool {
	return r.Parent == "" && r.ID == ""
}

// String renders the canonical textual form: "3" or "3.2".
func (r Ref) String() string {
	if r.IsSubtask() {
		return r.Parent + "." + r.ID
	}
	return r.ID
}

// Compare defines a total order over references: tasks before subtasks
// of the same id space, numeric ids by value before opaque string ids.
func (r Ref) Compare(other Ref) int {
	if c := comparePart(r.Parent, other.Parent); c != 0 {
		return c
	}
	return comparePart(r.ID, other.ID)
}

func comparePart(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return -1
	}
	if b == "" {
		return 1
	}
	an, aerr := strconv.Atoi(a)
	bn, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		if an < bn {
			return -1
		}
		if an > bn {
			return 1
		}
		return 0
	case aerr == nil:
		return -1
	case berr == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}
