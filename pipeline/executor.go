package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/nefro313/jobfit-ai-backend/errors"
	"github.com/nefro313/jobfit-ai-backend/llm"
	"github.com/nefro313/jobfit-ai-backend/logging"
	"github.com/nefro313/jobfit-ai-backend/prompt"
)

// DefaultTaskTimeout bounds a single provider invocation when no explicit
// timeout is configured.
const DefaultTaskTimeout = 90 * time.Second

// Executor resolves one task: renders its template, invokes the model-backed
// agent, and validates the returned text into the expected schema. The model
// call itself is delegated to the llm.Provider; the executor owns only the
// surrounding contract.
type Executor struct {
	store    *prompt.Store
	provider llm.Provider
	log      *logging.Logger
	timeout  time.Duration
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithTimeout sets the per-task provider deadline.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the executor's logger.
func WithLogger(log *logging.Logger) ExecutorOption {
	return func(e *Executor) {
		e.log = log.WithComponent("executor")
	}
}

// NewExecutor creates an executor over the given definitions and provider.
func NewExecutor(store *prompt.Store, provider llm.Provider, opts ...ExecutorOption) *Executor {
	e := &Executor{
		store:    store,
		provider: provider,
		log:      logging.New().WithComponent("executor"),
		timeout:  DefaultTaskTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one task with the given variables.
//
// Schema validation failures are recovered locally: the result carries the
// malformed status and the empty-object sentinel, and err is nil. Only
// rendering failures (missing variable) and provider failures (timeout,
// unavailability) are returned as errors, for the orchestrator to judge.
func (e *Executor) Execute(ctx context.Context, task prompt.TaskSpec, agent prompt.AgentSpec, vars map[string]interface{}) (*TaskResult, error) {
	rendered, err := prompt.RenderTask(task, vars)
	if err != nil {
		return nil, err
	}

	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := e.provider.Chat(callCtx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: prompt.SystemPrompt(agent)},
			{Role: "user", Content: rendered},
		},
	})
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeTaskExecution,
			"model invocation failed", errors.WithTask(task.Name))
	}

	result := &TaskResult{
		TaskName: task.Name,
		Duration: time.Since(started),
	}

	raw := resp.Content
	if !task.HasSchema() {
		result.RawOutput = CleanMarkdown(raw)
		if result.RawOutput == "" {
			result.Status = StatusEmpty
		} else {
			result.Status = StatusOK
		}
		e.log.StageResult(task.Name, string(result.Status), result.Duration)
		return result, nil
	}

	result.RawOutput = raw
	if strings.TrimSpace(raw) == "" {
		result.Status = StatusEmpty
		result.ParsedJSON = emptySentinel()
		e.log.StageResult(task.Name, string(result.Status), result.Duration)
		return result, nil
	}

	parsed, ok := parseObject(raw)
	if !ok {
		result.Status = StatusMalformed
		result.ParsedJSON = emptySentinel()
		e.log.StageResult(task.Name, string(result.Status), result.Duration)
		return result, nil
	}

	sch, err := e.store.Schemas().Get(task.Name)
	if err != nil {
		return nil, err
	}
	conformed, err := sch.Conform(parsed)
	if err != nil {
		e.log.Debug("schema_mismatch", map[string]interface{}{
			"task":  task.Name,
			"error": err.Error(),
		})
		result.Status = StatusMalformed
		result.ParsedJSON = emptySentinel()
		e.log.StageResult(task.Name, string(result.Status), result.Duration)
		return result, nil
	}

	result.Status = StatusOK
	result.ParsedJSON = conformed
	e.log.StageResult(task.Name, string(result.Status), result.Duration)
	return result, nil
}
