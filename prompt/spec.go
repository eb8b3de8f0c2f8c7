// Package prompt holds the declarative task and agent definitions that drive
// the pipelines. Definitions are YAML files loaded once at process start:
// each file declares the agents (role, goal, backstory), the tasks (prompt
// template, required inputs, expected output schema) and the pipeline that
// chains them. After load everything is immutable and safe for concurrent
// reads.
package prompt

import (
	"github.com/nefro313/jobfit-ai-backend/schema"
)

// AgentSpec describes a model-backed agent persona bound to one or more tasks.
type AgentSpec struct {
	Name            string `yaml:"-"`
	Role            string `yaml:"role"`
	Goal            string `yaml:"goal"`
	Backstory       string `yaml:"backstory"`
	Instructions    string `yaml:"instructions,omitempty"`
	AllowDelegation bool   `yaml:"allow_delegation"`
}

// TaskSpec describes a single prompt/schema unit consumed by one agent.
type TaskSpec struct {
	Name string `yaml:"-"`

	// Description is the prompt template. Placeholders use {snake_case}
	// syntax and are substituted at render time.
	Description string `yaml:"description"`

	// ExpectedOutput tells the model what shape of answer is wanted.
	// Appended to the rendered prompt.
	ExpectedOutput string `yaml:"expected_output"`

	// Agent names the AgentSpec this task is bound to.
	Agent string `yaml:"agent"`

	// Inputs lists variable names that must be present at render time,
	// in addition to any placeholder appearing in the template.
	Inputs []string `yaml:"inputs,omitempty"`

	// Fallback is the degraded output substituted when the pipeline
	// tolerates this task failing (e.g. "No recommendations.").
	Fallback string `yaml:"fallback,omitempty"`

	// OutputVar names the variable the task's output is bound to for
	// downstream stages (e.g. the scrape task binds job_details). Schema
	// task outputs are additionally merged key-by-key.
	OutputVar string `yaml:"output_var,omitempty"`

	// OutputSchema declares the strict JSON contract of the task output.
	// Tasks without a schema produce free-form text (markdown reports).
	OutputSchema map[string]schema.Field `yaml:"schema,omitempty"`
}

// HasSchema reports whether the task declares a strict JSON output contract.
func (t TaskSpec) HasSchema() bool {
	return len(t.OutputSchema) > 0
}

// PipelineDef is a fixed ordered chain of task names.
type PipelineDef struct {
	Name string `yaml:"name"`

	// Tasks is the execution order. A task never runs before all tasks
	// preceding it in this list have produced results.
	Tasks []string `yaml:"tasks"`

	// Output is "json" for an aggregated structured report or "markdown"
	// for a compiled text report.
	Output string `yaml:"output"`

	// Tolerant lists tasks whose failure degrades the run instead of
	// aborting it; their Fallback text stands in for the stage output.
	Tolerant []string `yaml:"tolerant,omitempty"`
}

// Tolerates reports whether the pipeline continues past a failure of task.
func (p PipelineDef) Tolerates(task string) bool {
	for _, name := range p.Tolerant {
		if name == task {
			return true
		}
	}
	return false
}

// document is the on-disk YAML shape of one pipeline definition file.
type document struct {
	Agents   map[string]AgentSpec `yaml:"agents"`
	Tasks    map[string]TaskSpec  `yaml:"tasks"`
	Pipeline *PipelineDef         `yaml:"pipeline"`
}
