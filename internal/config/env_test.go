package config

import (
	"log/slog"
	"testing"

	"github.com/kazz187/taskdeps/internal/task"
)

func TestLoadEnvDefaults(t *testing.T) {
	env, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if env.TasksFile != ".taskdeps/tasks.yaml" {
		t.Errorf("TasksFile = %q", env.TasksFile)
	}
	if env.DefaultConcurrency != 3 {
		t.Errorf("DefaultConcurrency = %d, want 3", env.DefaultConcurrency)
	}
	if env.SlogLevel() != slog.LevelInfo {
		t.Errorf("SlogLevel() = %v, want info", env.SlogLevel())
	}
	statuses := env.EligibleParentStatuses()
	if len(statuses) != 1 || statuses[0] != task.StatusInProgress {
		t.Errorf("EligibleParentStatuses() = %v, want [in-progress]", statuses)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TASKDEPS_TASKS_FILE", "/tmp/other.yaml")
	t.Setenv("TASKDEPS_LOG_LEVEL", "debug")
	t.Setenv("TASKDEPS_DEFAULT_CONCURRENCY", "5")
	t.Setenv("TASKDEPS_PARENT_STATUSES", "pending,in-progress")

	env, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if env.TasksFile != "/tmp/other.yaml" {
		t.Errorf("TasksFile = %q", env.TasksFile)
	}
	if env.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, want debug", env.SlogLevel())
	}
	if env.DefaultConcurrency != 5 {
		t.Errorf("DefaultConcurrency = %d, want 5", env.DefaultConcurrency)
	}
	statuses := env.EligibleParentStatuses()
	if len(statuses) != 2 || statuses[0] != task.StatusPending {
		t.Errorf("EligibleParentStatuses() = %v", statuses)
	}
}
