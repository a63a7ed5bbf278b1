package task

import "time"

// Task represents a top-level work unit in the dependency graph.
type Task struct {
	ID           ID                `yaml:"id" json:"id"`
	Title        string            `yaml:"title" json:"title"`
	Description  string            `yaml:"description,omitempty" json:"description,omitempty"`
	Status       Status            `yaml:"status" json:"status"`
	Priority     Priority          `yaml:"priority,omitempty" json:"priority,omitempty"`
	Dependencies []ID              `yaml:"dependencies" json:"dependencies"`
	Subtasks     []*Subtask        `yaml:"subtasks,omitempty" json:"subtasks,omitempty"`
	Metadata     map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt    time.Time         `yaml:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt    time.Time         `yaml:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// Subtask is a work unit scoped to a parent task. Its ID is only unique
// within the parent; the canonical external form is "<parent>.<id>".
type Subtask struct {
	ID           ID       `yaml:"id" json:"id"`
	Title        string   `yaml:"title" json:"title"`
	Description  string   `yaml:"description,omitempty" json:"description,omitempty"`
	Status       Status   `yaml:"status" json:"status"`
	Priority     Priority `yaml:"priority,omitempty" json:"priority,omitempty"`
	Dependencies []ID     `yaml:"dependencies" json:"dependencies"`
}

// Repository defines the interface for task collection persistence.
// The dependency engine never touches storage; callers load the whole
// collection, run engine calls, and save the result back.
type Repository interface {
	Load() ([]*Task, error)
	Save(tasks []*Task) error
}
