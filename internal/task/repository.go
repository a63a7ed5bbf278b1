package task

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// YAMLRepository implements Repository with whole-file YAML persistence.
type YAMLRepository struct {
	filePath string
}

// NewYAMLRepository creates a new YAML repository instance
func NewYAMLRepository(filePath string) *YAMLRepository {
	return &YAMLRepository{
		filePath: filePath,
	}
}

// Document represents the structure of the YAML file
type Document struct {
	Tasks []*Task `yaml:"tasks"`
}

// Path returns the backing file path.
func (r *YAMLRepository) Path() string {
	return r.filePath
}

// Load reads the whole task collection from the YAML file. A missing
// file is an empty collection, not an error.
func (r *YAMLRepository) Load() ([]*Task, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return []*Task{}, nil
	}

	content, err := os.ReadFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var doc Document
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return doc.Tasks, nil
}

// Save writes the whole task collection back to the YAML file.
func (r *YAMLRepository) Save(tasks []*Task) error {
	dir := filepath.Dir(r.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	content, err := EncodeDocument(tasks)
	if err != nil {
		return err
	}

	if err := os.WriteFile(r.filePath, content, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// EncodeDocument marshals a task collection to the on-disk YAML form.
// Exposed so callers can render dry-run previews without saving.
func EncodeDocument(tasks []*Task) ([]byte, error) {
	content, err := yaml.Marshal(&Document{Tasks: tasks})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return content, nil
}
