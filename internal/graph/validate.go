package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kazz187/taskdeps/internal/task"
)

// IssueKind classifies a validation finding.
type IssueKind string

const (
	IssueMissingDependency  IssueKind = "missing-dependency"
	IssueSelfDependency     IssueKind = "self-dependency"
	IssueStatusInversion    IssueKind = "status-inversion"
	IssueCircularDependency IssueKind = "circular-dependency"
)

// Issue is a single validation finding. Findings are data, not errors:
// Validate always returns a list, and an empty list means a healthy graph.
type Issue struct {
	Kind         IssueKind `json:"kind" yaml:"kind"`
	SubjectID    string    `json:"subject_id" yaml:"subject_id"`
	DependencyID string    `json:"dependency_id,omitempty" yaml:"dependency_id,omitempty"`
	CycleMembers []string  `json:"cycle_members,omitempty" yaml:"cycle_members,omitempty"`
	Reason       string    `json:"reason" yaml:"reason"`
}

// Validate walks the graph once and reports every structural problem in
// the dependency relation. It never mutates the graph and never fails;
// malformed reference syntax is reported as a missing dependency since
// repaired legacy data may legitimately contain unexpected forms.
func (g *Graph) Validate() []Issue {
	issues := []Issue{}

	for _, ref := range g.order {
		node := g.nodes[ref]
		for _, dep := range node.Dependencies() {
			depRef := ParseID(dep)
			if depRef == ref {
				issues = append(issues, Issue{
					Kind:         IssueSelfDependency,
					SubjectID:    ref.String(),
					DependencyID: depRef.String(),
					Reason:       fmt.Sprintf("%s depends on itself", ref),
				})
				continue
			}
			target, ok := g.Resolve(depRef)
			if !ok {
				issues = append(issues, Issue{
					Kind:         IssueMissingDependency,
					SubjectID:    ref.String(),
					DependencyID: depRef.String(),
					Reason:       fmt.Sprintf("%s depends on %s, which does not exist", ref, depRef),
				})
				continue
			}
			if node.Status() == task.StatusDone && !target.Status().IsComplete() {
				issues = append(issues, Issue{
					Kind:         IssueStatusInversion,
					SubjectID:    ref.String(),
					DependencyID: depRef.String(),
					Reason: fmt.Sprintf("%s is done but depends on %s, which is %s",
						ref, depRef, target.Status()),
				})
			}
		}
	}

	issues = append(issues, g.findCycles()...)
	return issues
}

// findCycles runs a three-color DFS over the full node set, tasks and
// subtasks treated uniformly by canonical ref. A gray revisit marks a
// cycle; the path is reconstructed from the parent chain so the issue
// carries the full member list, not just the closing edge. Dangling
// dependency targets are skipped — the existence pass already reported
// them.
func (g *Graph) findCycles() []Issue {
	const (
		white = iota
		gray
		black
	)

	color := make(map[Ref]int)
	parent := make(map[Ref]Ref)
	seen := make(map[string]bool)
	issues := []Issue{}

	var dfs func(ref Ref)
	dfs = func(ref Ref) {
		color[ref] = gray
		node := g.nodes[ref]
		for _, dep := range node.Dependencies() {
			depRef := ParseID(dep)
			if depRef == ref {
				// Reported by the self-reference pass.
				continue
			}
			if _, ok := g.nodes[depRef]; !ok {
				continue
			}
			switch color[depRef] {
			case gray:
				cycle := reconstructCycle(parent, ref, depRef)
				key := cycleKey(cycle)
				if !seen[key] {
					seen[key] = true
					issues = append(issues, Issue{
						Kind:         IssueCircularDependency,
						SubjectID:    depRef.String(),
						CycleMembers: cycle,
						Reason:       fmt.Sprintf("dependency cycle: %s", strings.Join(cycle, " -> ")),
					})
				}
			case white:
				parent[depRef] = ref
				dfs(depRef)
			}
		}
		color[ref] = black
	}

	for _, ref := range g.sortedRefs() {
		if color[ref] == white {
			dfs(ref)
		}
	}
	return issues
}

// reconstructCycle walks the parent chain from the node that closed the
// cycle back to the revisited gray node, then reverses into forward order.
func reconstructCycle(parent map[Ref]Ref, from, to Ref) []string {
	var cycle []string
	cur := from
	for {
		cycle = append(cycle, cur.String())
		if cur == to {
			break
		}
		cur = parent[cur]
	}
	for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
		cycle[i], cycle[j] = cycle[j], cycle[i]
	}
	return cycle
}

// cycleKey identifies a cycle independent of discovery order.
func cycleKey(cycle []string) string {
	members := make([]string, len(cycle))
	copy(members, cycle)
	sort.Strings(members)
	return strings.Join(members, ",")
}
