package config

import (
	"fmt"
	"log/slog"

	"github.com/kelseyhightower/envconfig"

	"github.com/kazz187/taskdeps/internal/task"
	"github.com/kazz187/taskdeps/pkg/clog"
)

type BaseEnv struct {
	TasksFile string `envconfig:"TASKS_FILE" default:".taskdeps/tasks.yaml"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPHost  string `envconfig:"HTTP_HOST" default:"localhost"`
	HTTPPort  int    `envconfig:"HTTP_PORT" default:"8080"`
}

type EngineEnv struct {
	DefaultConcurrency int      `envconfig:"DEFAULT_CONCURRENCY" default:"3"`
	DefaultPriority    string   `envconfig:"DEFAULT_PRIORITY" default:"medium"`
	ParentStatuses     []string `envconfig:"PARENT_STATUSES" default:"in-progress"`
}

type Env struct {
	BaseEnv
	EngineEnv
}

const namespace = "TASKDEPS"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelInfo
	}
	return clog.ParseLevel(e.LogLevel)
}

// EligibleParentStatuses converts the configured status names into the
// engine's explicit selection options.
func (e *EngineEnv) EligibleParentStatuses() []task.Status {
	statuses := make([]task.Status, 0, len(e.ParentStatuses))
	for _, s := range e.ParentStatuses {
		statuses = append(statuses, task.Status(s))
	}
	return statuses
}
