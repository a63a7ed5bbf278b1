// Package deps wires the dependency engine to persistence and events.
// The engine itself (internal/graph) is pure; this layer loads the
// collection, runs one engine call, and saves or publishes the result.
package deps

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kazz187/taskdeps/internal/event"
	"github.com/kazz187/taskdeps/internal/graph"
	"github.com/kazz187/taskdeps/internal/task"
)

const source = "deps-service"

// Service exposes graph operations over a persisted task collection.
type Service struct {
	repo task.Repository
	bus  *event.Bus
	opts graph.SelectOptions
}

// NewService creates a new dependency service instance.
func NewService(repo task.Repository, bus *event.Bus, opts graph.SelectOptions) *Service {
	return &Service{
		repo: repo,
		bus:  bus,
		opts: opts,
	}
}

// List returns the task collection as persisted.
func (s *Service) List() ([]*task.Task, error) {
	return s.repo.Load()
}

// Validate loads the collection and reports findings without mutating it.
func (s *Service) Validate() ([]graph.Issue, error) {
	tasks, err := s.repo.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	return graph.New(tasks).Validate(), nil
}

// Fix runs one validate-and-repair pass and persists the collection
// when anything changed. Residual issues come back in the report.
func (s *Service) Fix(ctx context.Context) (*graph.FixReport, error) {
	tasks, err := s.repo.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	report := graph.New(tasks).ValidateAndFix()
	if !report.Changed() {
		return report, nil
	}

	if err := s.repo.Save(tasks); err != nil {
		return nil, fmt.Errorf("failed to save repaired tasks: %w", err)
	}

	if s.bus != nil {
		data := &event.GraphRepairedData{
			MutationCount: len(report.Mutations),
			ResidualCount: len(report.Residual),
		}
		if err := s.bus.Publish(ctx, source, data); err != nil {
			slog.Warn("failed to publish graph repaired event", slog.Any("error", err))
		}
	}
	return report, nil
}

// FixPreview runs the same repair pass in memory only and returns the
// report plus the before/after serialized documents, so callers can
// render a diff without touching the file.
func (s *Service) FixPreview() (*graph.FixReport, []byte, []byte, error) {
	tasks, err := s.repo.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	before, err := task.EncodeDocument(tasks)
	if err != nil {
		return nil, nil, nil, err
	}

	report := graph.New(tasks).ValidateAndFix()

	after, err := task.EncodeDocument(tasks)
	if err != nil {
		return nil, nil, nil, err
	}
	return report, before, after, nil
}

// Next selects up to concurrency ready, mutually independent work items.
func (s *Service) Next(ctx context.Context, concurrency int) ([]*graph.Node, error) {
	tasks, err := s.repo.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	nodes, err := graph.New(tasks).SelectNext(concurrency, s.opts)
	if err != nil {
		return nil, err
	}

	if s.bus != nil && len(nodes) > 0 {
		ids := make([]string, len(nodes))
		for i, n := range nodes {
			ids[i] = n.Ref.String()
		}
		data := &event.TasksSelectedData{TaskIDs: ids, Concurrency: concurrency}
		if err := s.bus.Publish(ctx, source, data); err != nil {
			slog.Warn("failed to publish tasks selected event", slog.Any("error", err))
		}
	}
	return nodes, nil
}

// AddDependency adds a single edge and persists on success. Failure
// codes pass through from the engine; callers downgrade AlreadyExists
// to a warning.
func (s *Service) AddDependency(ctx context.Context, subject, dependency string) error {
	tasks, err := s.repo.Load()
	if err != nil {
		return fmt.Errorf("failed to load tasks: %w", err)
	}

	if err := graph.New(tasks).AddDependency(subject, dependency); err != nil {
		return err
	}
	if err := s.repo.Save(tasks); err != nil {
		return fmt.Errorf("failed to save tasks: %w", err)
	}

	if s.bus != nil {
		data := &event.DependencyAddedData{SubjectID: subject, DependencyID: dependency}
		if err := s.bus.Publish(ctx, source, data); err != nil {
			slog.Warn("failed to publish dependency added event", slog.Any("error", err))
		}
	}
	return nil
}

// RemoveDependency removes a single edge and persists on success.
func (s *Service) RemoveDependency(ctx context.Context, subject, dependency string) error {
	tasks, err := s.repo.Load()
	if err != nil {
		return fmt.Errorf("failed to load tasks: %w", err)
	}

	if err := graph.New(tasks).RemoveDependency(subject, dependency); err != nil {
		return err
	}
	if err := s.repo.Save(tasks); err != nil {
		return fmt.Errorf("failed to save tasks: %w", err)
	}

	if s.bus != nil {
		data := &event.DependencyRemovedData{SubjectID: subject, DependencyID: dependency}
		if err := s.bus.Publish(ctx, source, data); err != nil {
			slog.Warn("failed to publish dependency removed event", slog.Any("error", err))
		}
	}
	return nil
}
