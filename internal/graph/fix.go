package graph

import (
	"fmt"

	"github.com/kazz187/taskdeps/internal/task"
	"github.com/kazz187/taskdeps/pkg/cerr"
)

// MutationOp classifies a single repair applied to the graph.
type MutationOp string

const (
	OpRemoveDependency MutationOp = "remove-dependency"
	OpAddDependency    MutationOp = "add-dependency"
)

// Mutation records one dependency edit so callers can log or confirm
// exactly what a repair changed instead of just seeing a changed flag.
type Mutation struct {
	Op           MutationOp `json:"op" yaml:"op"`
	SubjectID    string     `json:"subject_id" yaml:"subject_id"`
	DependencyID string     `json:"dependency_id" yaml:"dependency_id"`
	Reason       string     `json:"reason" yaml:"reason"`
}

// FixReport summarizes one ValidateAndFix pass: the mutations applied
// and the issues that remain because they need human judgment (cycles,
// status inversions).
type FixReport struct {
	Mutations []Mutation `json:"mutations" yaml:"mutations"`
	Residual  []Issue    `json:"residual" yaml:"residual"`
}

// Changed reports whether the pass mutated the graph.
func (r *FixReport) Changed() bool {
	return len(r.Mutations) > 0
}

// RemoveDuplicateDependencies de-duplicates every node's dependency
// list by canonical reference, preserving first-seen order. Re-running
// on a clean graph is a no-op.
func (g *Graph) RemoveDuplicateDependencies() []Mutation {
	var mutations []Mutation
	for _, ref := range g.order {
		node := g.nodes[ref]
		deps := node.Dependencies()
		seen := make(map[Ref]bool, len(deps))
		kept := deps[:0:0]
		for _, dep := range deps {
			depRef := ParseID(dep)
			if seen[depRef] {
				mutations = append(mutations, Mutation{
					Op:           OpRemoveDependency,
					SubjectID:    ref.String(),
					DependencyID: depRef.String(),
					Reason:       "duplicate dependency",
				})
				continue
			}
			seen[depRef] = true
			kept = append(kept, dep)
		}
		if len(kept) != len(deps) {
			node.SetDependencies(kept)
		}
	}
	return mutations
}

// CleanupSubtaskDependencies drops dependency references to subtasks
// that no longer resolve, wherever they are held: a deleted subtask, or
// a whole parent removed with its subtasks, leaves dangling "parent.child"
// references behind in both tasks and sibling subtasks.
func (g *Graph) CleanupSubtaskDependencies() []Mutation {
	var mutations []Mutation
	for _, ref := range g.order {
		node := g.nodes[ref]
		deps := node.Dependencies()
		kept := deps[:0:0]
		for _, dep := range deps {
			depRef := ParseID(dep)
			if depRef.IsSubtask() && !g.Exists(depRef) {
				mutations = append(mutations, Mutation{
					Op:           OpRemoveDependency,
					SubjectID:    ref.String(),
					DependencyID: depRef.String(),
					Reason:       "dangling subtask dependency",
				})
				continue
			}
			kept = append(kept, dep)
		}
		if len(kept) != len(deps) {
			node.SetDependencies(kept)
		}
	}
	return mutations
}

// EnsureIndependentSubtask restores the soft invariant that a parent
// with subtasks keeps at least one startable subtask: when every
// subtask has dependencies, the first subtask's list is cleared. The
// dropped references are reported one mutation each so the caller can
// surface what was sacrificed.
func (g *Graph) EnsureIndependentSubtask() []Mutation {
	var mutations []Mutation
	for _, t := range g.tasks {
		if len(t.Subtasks) == 0 {
			continue
		}
		independent := false
		for _, st := range t.Subtasks {
			if len(st.Dependencies) == 0 {
				independent = true
				break
			}
		}
		if independent {
			continue
		}
		first := t.Subtasks[0]
		firstRef := Ref{Parent: canonicalPart(string(t.ID)), ID: canonicalPart(string(first.ID))}
		for _, dep := range first.Dependencies {
			mutations = append(mutations, Mutation{
				Op:           OpRemoveDependency,
				SubjectID:    firstRef.String(),
				DependencyID: ParseID(dep).String(),
				Reason:       "cleared to give the parent a startable subtask",
			})
		}
		first.Dependencies = []task.ID{}
	}
	return mutations
}

// AddDependency appends a dependency edge after resolving both ends.
// Failures carry cerr codes: NotFound when either reference does not
// resolve, InvalidArgument for a self-dependency, AlreadyExists when
// the edge is already present (warning-grade for callers).
func (g *Graph) AddDependency(subjectRaw, depRaw string) error {
	subjectRef := ParseRef(subjectRaw)
	subject, ok := g.Resolve(subjectRef)
	if !ok {
		return cerr.NewError(cerr.NotFound, fmt.Sprintf("task %s not found", subjectRef), nil)
	}
	depRef := ParseRef(depRaw)
	if !g.Exists(depRef) {
		return cerr.NewError(cerr.NotFound, fmt.Sprintf("dependency target %s not found", depRef), nil)
	}
	if subjectRef == depRef {
		return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("%s cannot depend on itself", subjectRef), nil)
	}
	for _, dep := range subject.Dependencies() {
		if ParseID(dep) == depRef {
			return cerr.NewError(cerr.AlreadyExists,
				fmt.Sprintf("%s already depends on %s", subjectRef, depRef), nil)
		}
	}
	subject.SetDependencies(append(subject.Dependencies(), task.ID(depRef.String())))
	return nil
}

// RemoveDependency removes a dependency edge. NotFound when the subject
// does not resolve; FailedPrecondition (warning-grade) when the edge is
// not currently listed.
func (g *Graph) RemoveDependency(subjectRaw, depRaw string) error {
	subjectRef := ParseRef(subjectRaw)
	subject, ok := g.Resolve(subjectRef)
	if !ok {
		return cerr.NewError(cerr.NotFound, fmt.Sprintf("task %s not found", subjectRef), nil)
	}
	depRef := ParseRef(depRaw)
	deps := subject.Dependencies()
	kept := deps[:0:0]
	for _, dep := range deps {
		if ParseID(dep) == depRef {
			continue
		}
		kept = append(kept, dep)
	}
	if len(kept) == len(deps) {
		return cerr.NewError(cerr.FailedPrecondition,
			fmt.Sprintf("%s does not depend on %s", subjectRef, depRef), nil)
	}
	subject.SetDependencies(kept)
	return nil
}

// ValidateAndFix runs the validator and applies every mechanical
// repair: dangling and self references are removed, duplicates
// de-duplicated, subtask dependencies cleaned, and the independent
// subtask invariant restored. Circular dependencies and status
// inversions are deliberately left alone — deciding which edge to drop
// needs human judgment — and come back as residual issues. The whole
// pass is idempotent.
func (g *Graph) ValidateAndFix() *FixReport {
	report := &FixReport{}

	for _, issue := range g.Validate() {
		switch issue.Kind {
		case IssueMissingDependency, IssueSelfDependency:
			subject, ok := g.Resolve(ParseRef(issue.SubjectID))
			if !ok {
				continue
			}
			depRef := ParseRef(issue.DependencyID)
			deps := subject.Dependencies()
			kept := deps[:0:0]
			for _, dep := range deps {
				if ParseID(dep) == depRef {
					continue
				}
				kept = append(kept, dep)
			}
			if len(kept) != len(deps) {
				subject.SetDependencies(kept)
				reason := "dangling dependency"
				if issue.Kind == IssueSelfDependency {
					reason = "self-dependency"
				}
				report.Mutations = append(report.Mutations, Mutation{
					Op:           OpRemoveDependency,
					SubjectID:    issue.SubjectID,
					DependencyID: depRef.String(),
					Reason:       reason,
				})
			}
		}
	}

	report.Mutations = append(report.Mutations, g.RemoveDuplicateDependencies()...)
	report.Mutations = append(report.Mutations, g.CleanupSubtaskDependencies()...)
	report.Mutations = append(report.Mutations, g.EnsureIndependentSubtask()...)

	report.Residual = g.Validate()
	return report
}
