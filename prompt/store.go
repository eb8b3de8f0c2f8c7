package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/nefro313/jobfit-ai-backend/errors"
	"github.com/nefro313/jobfit-ai-backend/schema"
)

// Store holds the loaded agent, task and pipeline definitions together with
// the schema registry built from them.
type Store struct {
	agents    map[string]AgentSpec
	tasks     map[string]TaskSpec
	pipelines map[string]PipelineDef
	schemas   *schema.Registry
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		agents:    make(map[string]AgentSpec),
		tasks:     make(map[string]TaskSpec),
		pipelines: make(map[string]PipelineDef),
		schemas:   schema.NewRegistry(),
	}
}

// LoadDir loads every .yaml file in dir, in name order.
func (s *Store) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeConfig, "read config dir")
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.LoadFile(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile loads one pipeline definition file into the store.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeConfig,
			fmt.Sprintf("missing configuration file %s", path))
	}
	if err := s.load(data); err != nil {
		return errors.Wrapf(err, "load %s", path)
	}
	return nil
}

// load parses and validates one YAML document.
func (s *Store) load(data []byte) error {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeConfig, "parse yaml")
	}

	for name, agent := range doc.Agents {
		if _, exists := s.agents[name]; exists {
			return errors.Newf(errors.ErrCodeConfig, "duplicate agent %q", name)
		}
		agent.Name = name
		if agent.Role == "" {
			return errors.Newf(errors.ErrCodeConfig, "agent %q has no role", name)
		}
		s.agents[name] = agent
	}

	for name, task := range doc.Tasks {
		if _, exists := s.tasks[name]; exists {
			return errors.Newf(errors.ErrCodeConfig, "duplicate task %q", name)
		}
		task.Name = name
		if task.Description == "" {
			return errors.Newf(errors.ErrCodeConfig, "task %q has no description", name)
		}
		if _, ok := s.agents[task.Agent]; !ok {
			return errors.Newf(errors.ErrCodeConfig, "task %q references unknown agent %q", name, task.Agent)
		}
		if task.HasSchema() {
			err := s.schemas.Register(schema.Schema{Task: name, Fields: task.OutputSchema})
			if err != nil {
				return err
			}
		}
		s.tasks[name] = task
	}

	if doc.Pipeline != nil {
		p := *doc.Pipeline
		if p.Name == "" {
			return errors.New(errors.ErrCodeConfig, "pipeline has no name")
		}
		if _, exists := s.pipelines[p.Name]; exists {
			return errors.Newf(errors.ErrCodeConfig, "duplicate pipeline %q", p.Name)
		}
		if len(p.Tasks) == 0 {
			return errors.Newf(errors.ErrCodeConfig, "pipeline %q has no tasks", p.Name)
		}
		for _, task := range p.Tasks {
			if _, ok := s.tasks[task]; !ok {
				return errors.Newf(errors.ErrCodeConfig, "pipeline %q references unknown task %q", p.Name, task)
			}
		}
		for _, task := range p.Tolerant {
			if _, ok := s.tasks[task]; !ok {
				return errors.Newf(errors.ErrCodeConfig, "pipeline %q tolerates unknown task %q", p.Name, task)
			}
		}
		if p.Output == "" {
			p.Output = "json"
		}
		s.pipelines[p.Name] = p
	}

	return nil
}

// Task returns the named task spec.
func (s *Store) Task(name string) (TaskSpec, error) {
	t, ok := s.tasks[name]
	if !ok {
		return TaskSpec{}, errors.New(errors.ErrCodeUnknownTask,
			fmt.Sprintf("no task named %q", name), errors.WithTask(name))
	}
	return t, nil
}

// Agent returns the named agent spec.
func (s *Store) Agent(name string) (AgentSpec, error) {
	a, ok := s.agents[name]
	if !ok {
		return AgentSpec{}, errors.Newf(errors.ErrCodeConfig, "no agent named %q", name)
	}
	return a, nil
}

// AgentFor returns the agent spec bound to the task.
func (s *Store) AgentFor(task TaskSpec) (AgentSpec, error) {
	return s.Agent(task.Agent)
}

// Pipeline returns the named pipeline definition.
func (s *Store) Pipeline(name string) (PipelineDef, error) {
	p, ok := s.pipelines[name]
	if !ok {
		return PipelineDef{}, errors.New(errors.ErrCodeUnknownPipeline,
			fmt.Sprintf("no pipeline named %q", name), errors.WithPipeline(name))
	}
	return p, nil
}

// Schemas returns the registry built from the loaded task schemas.
func (s *Store) Schemas() *schema.Registry {
	return s.schemas
}
