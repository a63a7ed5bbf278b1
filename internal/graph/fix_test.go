package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskdeps/internal/task"
	"github.com/kazz187/taskdeps/pkg/cerr"
)

func TestRemoveDuplicateDependencies(t *testing.T) {
	tasks := []*task.Task{
		newTask("1", task.StatusDone),
		newTask("2", task.StatusPending, "1", "01", "1", "3"),
		newTask("3", task.StatusPending),
	}
	g := New(tasks)

	mutations := g.RemoveDuplicateDependencies()
	require.Len(t, mutations, 2)
	for _, m := range mutations {
		assert.Equal(t, OpRemoveDependency, m.Op)
		assert.Equal(t, "2", m.SubjectID)
		assert.Equal(t, "1", m.DependencyID)
	}
	assert.Equal(t, []task.ID{"1", "3"}, tasks[1].Dependencies, "first spelling wins")

	assert.Empty(t, g.RemoveDuplicateDependencies(), "clean graph is a no-op")
}

func TestCleanupSubtaskDependencies(t *testing.T) {
	parent := newTask("1", task.StatusInProgress)
	parent.Subtasks = []*task.Subtask{
		newSubtask("1", task.StatusPending, "2.1", "1.2"),
		newSubtask("2", task.StatusPending),
	}
	tasks := []*task.Task{
		parent,
		// Task 2 was deleted along with its subtasks; 3 still points at 2.1.
		newTask("3", task.StatusPending, "2.1", "1", "99"),
	}
	g := New(tasks)

	mutations := g.CleanupSubtaskDependencies()
	require.Len(t, mutations, 2)
	assert.Equal(t, "1.1", mutations[0].SubjectID)
	assert.Equal(t, "2.1", mutations[0].DependencyID)
	assert.Equal(t, "3", mutations[1].SubjectID)
	assert.Equal(t, "2.1", mutations[1].DependencyID)

	assert.Equal(t, []task.ID{"1.2"}, parent.Subtasks[0].Dependencies)
	// Only dangling subtask references are pruned here; the dangling
	// task reference is the repair pass's job.
	assert.Equal(t, []task.ID{"1", "99"}, tasks[1].Dependencies)

	issues := issuesOfKind(g.Validate(), IssueMissingDependency)
	require.Len(t, issues, 1)
	assert.Equal(t, "99", issues[0].DependencyID)
}

func TestEnsureIndependentSubtask(t *testing.T) {
	blocked := newTask("1", task.StatusInProgress)
	blocked.Subtasks = []*task.Subtask{
		newSubtask("1", task.StatusPending, "1.2", "1.3"),
		newSubtask("2", task.StatusPending, "1.3"),
		newSubtask("3", task.StatusPending, "1.1"),
	}
	healthy := newTask("2", task.StatusInProgress)
	healthy.Subtasks = []*task.Subtask{
		newSubtask("1", task.StatusPending),
		newSubtask("2", task.StatusPending, "2.1"),
	}
	g := New([]*task.Task{blocked, healthy})

	mutations := g.EnsureIndependentSubtask()
	require.Len(t, mutations, 2, "one mutation per dropped reference")
	assert.Equal(t, "1.1", mutations[0].SubjectID)
	assert.Equal(t, "1.2", mutations[0].DependencyID)
	assert.Equal(t, "1.3", mutations[1].DependencyID)
	assert.Empty(t, blocked.Subtasks[0].Dependencies)

	// The healthy parent already had a startable subtask.
	assert.Equal(t, []task.ID{"2.1"}, healthy.Subtasks[1].Dependencies)
}

func TestAddDependency(t *testing.T) {
	parent := newTask("2", task.StatusInProgress)
	parent.Subtasks = []*task.Subtask{newSubtask("1", task.StatusPending)}
	tasks := []*task.Task{
		newTask("1", task.StatusPending),
		parent,
	}
	g := New(tasks)

	require.NoError(t, g.AddDependency("1", "2.1"))
	assert.Equal(t, []task.ID{"2.1"}, tasks[0].Dependencies)

	err := g.AddDependency("1", "2.01")
	assert.True(t, cerr.IsCode(err, cerr.AlreadyExists), "alternate spelling of an existing edge")

	err = g.AddDependency("99", "1")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))

	err = g.AddDependency("1", "99")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))

	err = g.AddDependency("01", "1")
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument), "self-dependency")
}

func TestRemoveDependency(t *testing.T) {
	tasks := []*task.Task{
		newTask("1", task.StatusPending, "02", "3"),
		newTask("2", task.StatusDone),
		newTask("3", task.StatusDone),
	}
	g := New(tasks)

	require.NoError(t, g.RemoveDependency("1", "2"))
	assert.Equal(t, []task.ID{"3"}, tasks[0].Dependencies, "matches by canonical value, not spelling")

	err := g.RemoveDependency("1", "2")
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))

	err = g.RemoveDependency("99", "1")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestValidateAndFix(t *testing.T) {
	corrupted := newTask("1", task.StatusInProgress, "99", "1", "2", "2")
	corrupted.Subtasks = []*task.Subtask{
		newSubtask("1", task.StatusPending, "5.1"),
		newSubtask("2", task.StatusPending, "1.1"),
	}
	tasks := []*task.Task{
		corrupted,
		newTask("2", task.StatusPending, "3"),
		newTask("3", task.StatusPending, "2"),
	}
	g := New(tasks)

	report := g.ValidateAndFix()
	require.True(t, report.Changed())

	// Mechanical repairs: dangling, self, and duplicate references gone,
	// plus the first subtask freed so the parent has startable work.
	assert.Equal(t, []task.ID{"2"}, tasks[0].Dependencies)
	assert.Empty(t, corrupted.Subtasks[0].Dependencies)
	assert.Equal(t, []task.ID{"1.1"}, corrupted.Subtasks[1].Dependencies)

	// The 2<->3 cycle needs a human decision and stays residual.
	require.Len(t, report.Residual, 1)
	assert.Equal(t, IssueCircularDependency, report.Residual[0].Kind)

	second := g.ValidateAndFix()
	assert.False(t, second.Changed(), "idempotent")
	assert.Len(t, second.Residual, 1)
}

func TestValidateAndFixHealthyGraph(t *testing.T) {
	g := New([]*task.Task{
		newTask("1", task.StatusDone),
		newTask("2", task.StatusPending, "1"),
	})

	report := g.ValidateAndFix()
	assert.False(t, report.Changed())
	assert.Empty(t, report.Residual)
}
