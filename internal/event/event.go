package event

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType represents the type of event
type EventType string

const (
	DependencyAdded   EventType = "dependency.added"
	DependencyRemoved EventType = "dependency.removed"
	GraphRepaired     EventType = "graph.repaired"
	TasksSelected     EventType = "tasks.selected"
)

// Event represents a typed system event
type Event[T any] struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Data      T         `json:"data"`
}

// EventMessage represents a serialized event for transport
type EventMessage struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent creates a new typed event
func NewEvent[T any](source string, data T) *Event[T] {
	return &Event[T]{
		ID:        ulid.Make().String(),
		Timestamp: time.Now(),
		Source:    source,
		Data:      data,
	}
}

// ToMessage converts a typed event to a transport message
func (e *Event[T]) ToMessage() (*EventMessage, error) {
	rawData, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}

	return &EventMessage{
		ID:        e.ID,
		Type:      inferEventType(e.Data),
		Timestamp: e.Timestamp,
		Source:    e.Source,
		Data:      rawData,
	}, nil
}

// FromMessage converts a transport message to a typed event
func FromMessage[T any](msg *EventMessage) (*Event[T], error) {
	var data T
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return nil, err
	}

	return &Event[T]{
		ID:        msg.ID,
		Timestamp: msg.Timestamp,
		Source:    msg.Source,
		Data:      data,
	}, nil
}

// inferEventType infers EventType from data type
func inferEventType(data any) EventType {
	dataType := reflect.TypeOf(data)
	if dataType.Kind() == reflect.Ptr {
		dataType = dataType.Elem()
	}

	switch dataType.Name() {
	case "DependencyAddedData":
		return DependencyAdded
	case "DependencyRemovedData":
		return DependencyRemoved
	case "GraphRepairedData":
		return GraphRepaired
	case "TasksSelectedData":
		return TasksSelected
	default:
		return EventType(camelToDotted(dataType.Name()))
	}
}

// camelToDotted converts CamelCase to dot.separated form
func camelToDotted(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteByte('.')
		}
		result.WriteRune(r)
	}
	return strings.ToLower(result.String())
}

// DependencyAddedData represents data for dependency added event
type DependencyAddedData struct {
	SubjectID    string `json:"subject_id"`
	DependencyID string `json:"dependency_id"`
}

// DependencyRemovedData represents data for dependency removed event
type DependencyRemovedData struct {
	SubjectID    string `json:"subject_id"`
	DependencyID string `json:"dependency_id"`
}

// GraphRepairedData represents data for graph repaired event
type GraphRepairedData struct {
	MutationCount int `json:"mutation_count"`
	ResidualCount int `json:"residual_count"`
}

// TasksSelectedData represents data for tasks selected event
type TasksSelectedData struct {
	TaskIDs     []string `json:"task_ids"`
	Concurrency int      `json:"concurrency"`
}
