package service

import (
	"context"

	"github.com/nefro313/jobfit-ai-backend/errors"
	"github.com/nefro313/jobfit-ai-backend/extract"
	"github.com/nefro313/jobfit-ai-backend/logging"
	"github.com/nefro313/jobfit-ai-backend/pipeline"
)

// PipelineResumeBuilder is the pipeline name for resume tailoring.
const PipelineResumeBuilder = "resume_builder"

// tailorTask is the stage whose structured output is returned alongside the
// markdown result.
const tailorTask = "tailor_resume_task"

// TailorRequest is the input to a resume tailoring run.
type TailorRequest struct {
	ResumePDF       []byte
	JobPostingURL   string
	GithubURL       string
	PersonalWriteup string
}

// TailorResult is the outcome of a resume tailoring run.
type TailorResult struct {
	// Markdown is the compiled interview preparation document.
	Markdown string `json:"result"`

	// TailoredResume is the structured resume produced by the tailoring
	// stage.
	TailoredResume map[string]interface{} `json:"tailored_resume"`
}

// ResumeBuilder tailors a resume to a specific job posting and prepares
// interview material.
type ResumeBuilder struct {
	orch    *pipeline.Orchestrator
	fetcher *extract.Fetcher
	log     *logging.Logger
}

// NewResumeBuilder creates the resume tailoring service.
func NewResumeBuilder(orch *pipeline.Orchestrator, fetcher *extract.Fetcher, log *logging.Logger) *ResumeBuilder {
	if log == nil {
		log = logging.New()
	}
	return &ResumeBuilder{orch: orch, fetcher: fetcher, log: log.WithComponent("resume")}
}

// Tailor fetches the job posting, extracts the resume text, and runs the
// tailoring pipeline.
func (s *ResumeBuilder) Tailor(ctx context.Context, req TailorRequest) (*TailorResult, error) {
	resumeText, err := extract.Text(extract.MimePDF, req.ResumePDF)
	if err != nil {
		return nil, err
	}

	posting, err := s.fetcher.Fetch(ctx, req.JobPostingURL)
	if err != nil {
		return nil, err
	}

	report, err := s.orch.Run(ctx, PipelineResumeBuilder, map[string]interface{}{
		"resume_text":      resumeText,
		"job_posting":      posting,
		"github_url":       req.GithubURL,
		"personal_writeup": req.PersonalWriteup,
	})
	if err != nil {
		return nil, err
	}
	if report.Incomplete {
		return nil, errors.New(errors.ErrCodeTaskExecution,
			"tailoring pipeline returned an incomplete report",
			errors.WithPipeline(PipelineResumeBuilder))
	}
	if report.Markdown == "" {
		return nil, errors.New(errors.ErrCodeInternal,
			"tailoring pipeline produced no output")
	}

	result := &TailorResult{Markdown: report.Markdown}
	if tailored, ok := report.Stages[tailorTask].(map[string]interface{}); ok {
		result.TailoredResume = tailored
	}
	return result, nil
}
