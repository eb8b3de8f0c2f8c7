package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nefro313/jobfit-ai-backend/errors"
	"github.com/nefro313/jobfit-ai-backend/logging"
	"github.com/nefro313/jobfit-ai-backend/prompt"
)

// Orchestrator chains tasks into pipeline runs. Execution is strictly
// sequential: a task never starts before every task preceding it in the
// pipeline definition has produced a result, because its variables are built
// from their outputs. Concurrent runs share only the read-only definitions.
type Orchestrator struct {
	store *prompt.Store
	exec  *Executor
	log   *logging.Logger
}

// NewOrchestrator creates an orchestrator over the given definitions and
// executor.
func NewOrchestrator(store *prompt.Store, exec *Executor, log *logging.Logger) *Orchestrator {
	if log == nil {
		log = logging.New()
	}
	return &Orchestrator{
		store: store,
		exec:  exec,
		log:   log.WithComponent("orchestrator"),
	}
}

// Run executes the named pipeline with the given initial inputs and
// aggregates the final report.
//
// A malformed stage short-circuits the run and returns a partial report
// marked incomplete, unless the pipeline tolerates the stage, in which case
// its declared fallback stands in and the run continues. Provider failures
// on tolerated stages degrade the same way; on required stages they abort
// the run with a structured error.
func (o *Orchestrator) Run(ctx context.Context, pipelineName string, inputs map[string]interface{}) (*Report, error) {
	def, err := o.store.Pipeline(pipelineName)
	if err != nil {
		return nil, err
	}

	run := &Run{
		ID:       uuid.NewString(),
		Pipeline: def.Name,
		Started:  time.Now(),
	}
	log := o.log.WithRunID(run.ID)
	log.RunStart(def.Name, len(def.Tasks))

	if err := o.checkInputs(def, inputs); err != nil {
		return nil, err
	}

	// Variables start as a copy of the caller's inputs; each stage's
	// output is merged in for the stages after it.
	vars := make(map[string]interface{}, len(inputs))
	for k, v := range inputs {
		vars[k] = v
	}

	report := &Report{
		RunID:    run.ID,
		Pipeline: def.Name,
		Stages:   make(map[string]interface{}, len(def.Tasks)),
	}

	for _, taskName := range def.Tasks {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "pipeline canceled", errors.WithPipeline(def.Name))
		}

		task, err := o.store.Task(taskName)
		if err != nil {
			return nil, err
		}
		agent, err := o.store.AgentFor(task)
		if err != nil {
			return nil, err
		}

		result, err := o.exec.Execute(ctx, task, agent, vars)
		if err != nil {
			if !def.Tolerates(taskName) {
				// Caller inputs were checked up front, so a variable
				// missing here means an upstream stage failed to
				// produce it, not that the caller's inputs were bad.
				if errors.Is(err, errors.ErrCodeMissingVariable) {
					return nil, errors.WrapWithCode(err, errors.ErrCodeTaskExecution,
						"pipeline stage failed",
						errors.WithPipeline(def.Name), errors.WithTask(taskName))
				}
				return nil, errors.Wrap(err, "pipeline stage failed",
					errors.WithPipeline(def.Name), errors.WithTask(taskName))
			}
			log.StageDegraded(taskName, err)
			result = degradedResult(task)
		}

		// An empty response on a required stage is as unusable as a
		// malformed one: downstream stages would render against the
		// sentinel and fail on variables the stage never produced.
		failed := result.Status == StatusMalformed ||
			(result.Status == StatusEmpty && !result.Degraded)
		if failed && !def.Tolerates(taskName) {
			run.Results = append(run.Results, result)
			report.Stages[taskName] = result.ParsedJSON
			report.Incomplete = true
			break
		}
		if failed && def.Tolerates(taskName) {
			result = degradedResult(task)
		}

		run.Results = append(run.Results, result)
		mergeOutput(vars, task, result)

		if result.ParsedJSON != nil {
			report.Stages[taskName] = result.ParsedJSON
		} else {
			report.Stages[taskName] = result.RawOutput
		}
	}

	report.Results = run.Results
	// A short-circuited run never publishes its last stage's raw text as
	// the compiled report; callers get the incomplete marker instead.
	if def.Output == "markdown" && !report.Incomplete && len(run.Results) > 0 {
		report.Markdown = run.Results[len(run.Results)-1].RawOutput
	}

	log.RunComplete(def.Name, time.Since(run.Started), report.Incomplete)
	return report, nil
}

// checkInputs verifies the caller supplied every input field the pipeline's
// stages declare, skipping fields an earlier stage produces. Running the
// check before any stage lets a bad request fail fast, and pins later render
// failures on stage output rather than on the caller.
func (o *Orchestrator) checkInputs(def prompt.PipelineDef, inputs map[string]interface{}) error {
	produced := make(map[string]bool)
	for _, taskName := range def.Tasks {
		task, err := o.store.Task(taskName)
		if err != nil {
			return err
		}
		for _, field := range task.Inputs {
			if produced[field] {
				continue
			}
			if _, ok := inputs[field]; !ok {
				return errors.Newf(errors.ErrCodeMissingVariable,
					"input %q required by task %q was not provided", field, taskName)
			}
		}
		for key := range task.OutputSchema {
			produced[key] = true
		}
		if task.OutputVar != "" {
			produced[task.OutputVar] = true
		}
	}
	return nil
}

// degradedResult builds the stand-in result for a tolerated stage failure.
func degradedResult(task prompt.TaskSpec) *TaskResult {
	result := &TaskResult{
		TaskName:  task.Name,
		RawOutput: task.Fallback,
		Status:    StatusEmpty,
		Degraded:  true,
	}
	if task.HasSchema() {
		result.ParsedJSON = emptySentinel()
	}
	return result
}

// mergeOutput folds a completed stage's output into the variable set for
// subsequent stages.
func mergeOutput(vars map[string]interface{}, task prompt.TaskSpec, result *TaskResult) {
	if result.ParsedJSON != nil {
		for k, v := range result.ParsedJSON {
			vars[k] = v
		}
		if task.OutputVar != "" {
			vars[task.OutputVar] = result.ParsedJSON
		}
		return
	}
	if task.OutputVar != "" {
		vars[task.OutputVar] = result.RawOutput
	}
}
