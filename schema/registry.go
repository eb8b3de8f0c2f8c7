package schema

import (
	"fmt"

	"github.com/nefro313/jobfit-ai-backend/errors"
)

// Registry maps task names to their declared output schemas.
// It is populated at load time and read-only afterwards.
type Registry struct {
	schemas map[string]Schema
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]Schema)}
}

// Register adds a schema under its task name. Registering the same task twice
// is a configuration mistake and fails.
func (r *Registry) Register(s Schema) error {
	if s.Task == "" {
		return errors.New(errors.ErrCodeConfig, "schema has no task name")
	}
	if _, exists := r.schemas[s.Task]; exists {
		return errors.Newf(errors.ErrCodeConfig, "duplicate schema for task %q", s.Task)
	}
	r.schemas[s.Task] = s
	return nil
}

// Get returns the schema declared for the task.
func (r *Registry) Get(task string) (Schema, error) {
	s, ok := r.schemas[task]
	if !ok {
		return Schema{}, errors.New(errors.ErrCodeUnknownTask,
			fmt.Sprintf("no schema for task %q", task), errors.WithTask(task))
	}
	return s, nil
}

// Has reports whether a schema is registered for the task.
// Tasks with free-form (markdown) output have no schema.
func (r *Registry) Has(task string) bool {
	_, ok := r.schemas[task]
	return ok
}

// Tasks returns the registered task names.
func (r *Registry) Tasks() []string {
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	return names
}
