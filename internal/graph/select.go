package graph

import (
	"fmt"
	"sort"

	"github.com/kazz187/taskdeps/internal/task"
	"github.com/kazz187/taskdeps/pkg/cerr"
)

// MaxConcurrency is the hard cap on how many tasks one selection call
// hands out; larger requests are clamped, the caller surfaces a warning.
const MaxConcurrency = 10

// SelectOptions configures candidate eligibility. Defaults are passed
// explicitly by callers (typically from config) rather than baked in.
type SelectOptions struct {
	// EligibleParentStatuses lists the parent task statuses whose
	// pending subtasks are offered first. Empty means in-progress only.
	EligibleParentStatuses []task.Status
}

func (o SelectOptions) parentEligible() map[task.Status]bool {
	statuses := o.EligibleParentStatuses
	if len(statuses) == 0 {
		statuses = []task.Status{task.StatusInProgress}
	}
	eligible := make(map[task.Status]bool, len(statuses))
	for _, s := range statuses {
		eligible[s.Normalize()] = true
	}
	return eligible
}

// SelectNext returns up to concurrency ready, mutually independent
// work items. Candidates are gathered in two phases — pending subtasks
// of eligible parents first, then pending or in-progress top-level
// tasks — sorted by priority descending, dependency count ascending,
// canonical id ascending, and then greedily filtered so that nothing
// returned depends on anything else in the same batch. The result may
// be shorter than requested; that is not an error. The graph is never
// mutated.
func (g *Graph) SelectNext(concurrency int, opts SelectOptions) ([]*Node, error) {
	if concurrency <= 0 {
		return nil, cerr.NewError(cerr.InvalidArgument,
			fmt.Sprintf("concurrency must be a positive integer, got %d", concurrency), nil)
	}
	if concurrency > MaxConcurrency {
		concurrency = MaxConcurrency
	}

	completed := g.CompletedSet()
	parentEligible := opts.parentEligible()

	var candidates []*Node

	// Phase A: subtasks of eligible parents.
	for _, t := range g.tasks {
		if !parentEligible[t.Status.Normalize()] {
			continue
		}
		for _, st := range t.Subtasks {
			ref := Ref{Parent: canonicalPart(string(t.ID)), ID: canonicalPart(string(st.ID))}
			node, ok := g.Resolve(ref)
			if !ok || node.Subtask != st {
				continue
			}
			if node.Status() != task.StatusPending {
				continue
			}
			if dependenciesSatisfied(node, completed) {
				candidates = append(candidates, node)
			}
		}
	}

	// Phase B: top-level tasks.
	for _, t := range g.tasks {
		ref := ParseID(t.ID)
		node, ok := g.Resolve(ref)
		if !ok || node.Task != t {
			continue
		}
		status := node.Status()
		if status != task.StatusPending && status != task.StatusInProgress {
			continue
		}
		if dependenciesSatisfied(node, completed) {
			candidates = append(candidates, node)
		}
	}

	// Total order: phase order is only reachable through the stable
	// sort, the ref comparison keeps equal inputs deterministic.
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		aw, bw := a.Priority().Weight(), b.Priority().Weight()
		if aw != bw {
			return aw > bw
		}
		if len(a.Dependencies()) != len(b.Dependencies()) {
			return len(a.Dependencies()) < len(b.Dependencies())
		}
		return a.Ref.Compare(b.Ref) < 0
	})

	// Greedy frontier: satisfaction only proves prerequisites are
	// complete; a candidate can still depend on another candidate. The
	// selected-set check guarantees the batch can start in parallel.
	selected := make(map[Ref]bool)
	var out []*Node
	for _, candidate := range candidates {
		if dependsOnSelected(candidate, selected) {
			continue
		}
		selected[candidate.Ref] = true
		out = append(out, candidate)
		if len(out) == concurrency {
			break
		}
	}
	return out, nil
}

func dependenciesSatisfied(node *Node, completed map[Ref]bool) bool {
	for _, dep := range node.Dependencies() {
		if !completed[ParseID(dep)] {
			return false
		}
	}
	return true
}

func dependsOnSelected(node *Node, selected map[Ref]bool) bool {
	for _, dep := range node.Dependencies() {
		if selected[ParseID(dep)] {
			return true
		}
	}
	return false
}
