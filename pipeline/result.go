// Package pipeline implements the multi-stage task pipeline: a directed
// sequence of named tasks where each stage's validated output feeds the next
// stage's variables. The executor resolves one task against the model; the
// orchestrator chains tasks and aggregates the final report.
package pipeline

import (
	"time"
)

// ValidationStatus classifies a task's output against its declared schema.
type ValidationStatus string

const (
	// StatusOK means the output parsed and matched the schema exactly.
	StatusOK ValidationStatus = "ok"

	// StatusMalformed means the output failed to parse or validate even
	// after the repair pass; ParsedJSON holds the empty-object sentinel.
	StatusMalformed ValidationStatus = "malformed"

	// StatusEmpty means the model returned no usable content, or a
	// degraded fallback was substituted for the stage.
	StatusEmpty ValidationStatus = "empty"
)

// TaskResult is the outcome of one task invocation. Results live only for
// the duration of the pipeline run that produced them.
type TaskResult struct {
	TaskName   string                 `json:"task_name"`
	RawOutput  string                 `json:"raw_output,omitempty"`
	ParsedJSON map[string]interface{} `json:"parsed_json,omitempty"`
	Status     ValidationStatus       `json:"validation_status"`

	// Degraded marks a tolerated failure substituted with the task's
	// fallback output.
	Degraded bool `json:"degraded,omitempty"`

	Duration time.Duration `json:"-"`
}

// Run is one pipeline execution: an ordered sequence of task results keyed
// by a run identifier. It exists only for the duration of one request.
type Run struct {
	ID       string        `json:"run_id"`
	Pipeline string        `json:"pipeline"`
	Results  []*TaskResult `json:"results"`
	Started  time.Time     `json:"-"`
}

// Result returns the result for a task name, or nil if the task has not run.
func (r *Run) Result(task string) *TaskResult {
	for _, res := range r.Results {
		if res.TaskName == task {
			return res
		}
	}
	return nil
}

// Report is the aggregated outcome returned to the caller.
type Report struct {
	RunID    string `json:"run_id"`
	Pipeline string `json:"pipeline"`

	// Incomplete is set when a stage failed validation and the pipeline
	// short-circuited instead of running the remaining tasks.
	Incomplete bool `json:"incomplete"`

	// Stages maps each executed task to its parsed output (schema tasks)
	// or raw text (free-form tasks).
	Stages map[string]interface{} `json:"stages,omitempty"`

	// Markdown holds the compiled report for markdown pipelines.
	Markdown string `json:"report,omitempty"`

	Results []*TaskResult `json:"-"`
}
