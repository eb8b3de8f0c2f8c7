package service

import (
	"context"
	"strings"

	"github.com/nefro313/jobfit-ai-backend/errors"
	"github.com/nefro313/jobfit-ai-backend/logging"
	"github.com/nefro313/jobfit-ai-backend/pipeline"
	"github.com/nefro313/jobfit-ai-backend/rag"
)

// PipelineHRQA is the pipeline name for policy question answering.
const PipelineHRQA = "hr_qa"

// retrievedPassages is how many chunks are fed to the answer pipeline.
const retrievedPassages = 5

// HRQA answers questions about company policy, grounded in passages
// retrieved from the indexed policy documents.
type HRQA struct {
	orch  *pipeline.Orchestrator
	index *rag.Index
	log   *logging.Logger
}

// NewHRQA creates the policy question answering service.
func NewHRQA(orch *pipeline.Orchestrator, index *rag.Index, log *logging.Logger) *HRQA {
	if log == nil {
		log = logging.New()
	}
	return &HRQA{orch: orch, index: index, log: log.WithComponent("hrqa")}
}

// Ask retrieves the passages most relevant to the question and runs the
// answer pipeline with them as context.
func (s *HRQA) Ask(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "question is required")
	}

	results, err := s.index.Search(question, retrievedPassages)
	if err != nil {
		return "", err
	}
	s.log.Debug("passages retrieved", map[string]interface{}{
		"question": question,
		"passages": len(results),
	})

	docContext := rag.Context(results)
	if docContext == "" {
		docContext = "No relevant policy passages were found."
	}

	report, err := s.orch.Run(ctx, PipelineHRQA, map[string]interface{}{
		"question": question,
		"context":  docContext,
	})
	if err != nil {
		return "", err
	}
	if report.Incomplete {
		return "", errors.New(errors.ErrCodeTaskExecution,
			"answer pipeline returned an incomplete report",
			errors.WithPipeline(PipelineHRQA))
	}
	if report.Markdown == "" {
		return "", errors.New(errors.ErrCodeInternal,
			"answer pipeline produced no output")
	}
	return report.Markdown, nil
}
