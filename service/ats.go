// Package service exposes the product features as thin layers over the task
// pipeline: resume/job compatibility checks, job posting analysis, HR policy
// question answering, and resume tailoring. Each service validates its
// inputs, prepares pipeline variables, and shapes the run report for the API.
package service

import (
	"context"

	"github.com/nefro313/jobfit-ai-backend/extract"
	"github.com/nefro313/jobfit-ai-backend/logging"
	"github.com/nefro313/jobfit-ai-backend/pipeline"
)

// PipelineATS is the pipeline name used for compatibility checks.
const PipelineATS = "ats"

// ATSChecker scores a resume against a job description.
type ATSChecker struct {
	orch *pipeline.Orchestrator
	log  *logging.Logger
}

// NewATSChecker creates the compatibility check service.
func NewATSChecker(orch *pipeline.Orchestrator, log *logging.Logger) *ATSChecker {
	if log == nil {
		log = logging.New()
	}
	return &ATSChecker{orch: orch, log: log.WithComponent("ats")}
}

// Check extracts the resume's text and runs the compatibility pipeline
// against the job description. The returned report carries each stage's
// structured output keyed by task name.
func (s *ATSChecker) Check(ctx context.Context, resumePDF []byte, jobDescription string) (*pipeline.Report, error) {
	if err := extract.ValidateJobDescription(jobDescription); err != nil {
		return nil, err
	}

	resumeText, err := extract.Text(extract.MimePDF, resumePDF)
	if err != nil {
		return nil, err
	}

	return s.orch.Run(ctx, PipelineATS, map[string]interface{}{
		"resume_text":     resumeText,
		"job_description": jobDescription,
	})
}
