package graph

import (
	"sort"

	"github.com/kazz187/taskdeps/internal/task"
)

// Node is one entry in the graph's arena: either a task or a subtask,
// addressed uniformly by canonical Ref. Mutations write through to the
// underlying task structs so the caller can re-serialize the collection.
type Node struct {
	Ref     Ref
	Task    *task.Task
	Subtask *task.Subtask
	Parent  *task.Task // set for subtask nodes
}

func (n *Node) Status() task.Status {
	if n.Subtask != nil {
		return n.Subtask.Status.Normalize()
	}
	return n.Task.Status.Normalize()
}

func (n *Node) Priority() task.Priority {
	if n.Subtask != nil {
		return n.Subtask.Priority
	}
	return n.Task.Priority
}

func (n *Node) Title() string {
	if n.Subtask != nil {
		return n.Subtask.Title
	}
	return n.Task.Title
}

func (n *Node) Dependencies() []task.ID {
	if n.Subtask != nil {
		return n.Subtask.Dependencies
	}
	return n.Task.Dependencies
}

func (n *Node) SetDependencies(deps []task.ID) {
	if n.Subtask != nil {
		n.Subtask.Dependencies = deps
		return
	}
	n.Task.Dependencies = deps
}

// Graph is an in-memory dependency graph over one task collection. It
// holds no state beyond the collection itself and an index keyed by
// canonical Ref; a fresh Graph is built per operation.
type Graph struct {
	tasks []*task.Task
	nodes map[Ref]*Node
	order []Ref // declaration order of all nodes
}

// New indexes a task collection. When duplicate ids occur in corrupted
// input the first declaration wins; the engine assumes the caller has
// already rejected structurally unparseable data.
func New(tasks []*task.Task) *Graph {
	g := &Graph{
		tasks: tasks,
		nodes: make(map[Ref]*Node),
	}
	for _, t := range tasks {
		ref := ParseID(t.ID)
		if _, exists := g.nodes[ref]; exists {
			continue
		}
		g.nodes[ref] = &Node{Ref: ref, Task: t}
		g.order = append(g.order, ref)
		for _, st := range t.Subtasks {
			sref := Ref{Parent: ref.ID, ID: canonicalPart(string(st.ID))}
			if _, exists := g.nodes[sref]; exists {
				continue
			}
			g.nodes[sref] = &Node{Ref: sref, Subtask: st, Parent: t}
			g.order = append(g.order, sref)
		}
	}
	return g
}

// Tasks returns the underlying collection in declaration order.
func (g *Graph) Tasks() []*task.Task {
	return g.tasks
}

// Resolve looks up the node a reference denotes.
func (g *Graph) Resolve(ref Ref) (*Node, bool) {
	n, ok := g.nodes[ref]
	return n, ok
}

// Exists reports whether a reference resolves within the graph.
func (g *Graph) Exists(ref Ref) bool {
	_, ok := g.nodes[ref]
	return ok
}

// Len returns the number of nodes (tasks plus subtasks).
func (g *Graph) Len() int {
	return len(g.nodes)
}

// CompletedSet returns the canonical refs of every node whose status
// satisfies dependents.
func (g *Graph) CompletedSet() map[Ref]bool {
	completed := make(map[Ref]bool)
	for ref, node := range g.nodes {
		if node.Status().IsComplete() {
			completed[ref] = true
		}
	}
	return completed
}

// sortedRefs returns all refs in canonical order for deterministic passes.
func (g *Graph) sortedRefs() []Ref {
	refs := make([]Ref, len(g.order))
	copy(refs, g.order)
	sort.Slice(refs, func(i, j int) bool {
		return refs[i].Compare(refs[j]) < 0
	})
	return refs
}
