package service

import (
	"context"
	"strings"

	"github.com/nefro313/jobfit-ai-backend/errors"
	"github.com/nefro313/jobfit-ai-backend/extract"
	"github.com/nefro313/jobfit-ai-backend/logging"
	"github.com/nefro313/jobfit-ai-backend/pipeline"
)

// PipelineJobAnalysis is the pipeline name for job posting analysis.
const PipelineJobAnalysis = "jp_analyser"

// JobAnalyser turns a job posting URL into an insights report: it fetches
// the posting, identifies the company, and runs the analysis pipeline.
type JobAnalyser struct {
	orch    *pipeline.Orchestrator
	fetcher *extract.Fetcher
	log     *logging.Logger
}

// NewJobAnalyser creates the job posting analysis service.
func NewJobAnalyser(orch *pipeline.Orchestrator, fetcher *extract.Fetcher, log *logging.Logger) *JobAnalyser {
	if log == nil {
		log = logging.New()
	}
	return &JobAnalyser{orch: orch, fetcher: fetcher, log: log.WithComponent("analyser")}
}

// Analyse fetches the posting at jobURL and produces a markdown insights
// report combining the job details with company research.
func (s *JobAnalyser) Analyse(ctx context.Context, jobURL string) (string, error) {
	page, err := s.fetcher.Fetch(ctx, jobURL)
	if err != nil {
		return "", err
	}

	company := CompanyName(page)
	s.log.Info("job posting fetched", map[string]interface{}{
		"url":     jobURL,
		"company": company,
	})

	report, err := s.orch.Run(ctx, PipelineJobAnalysis, map[string]interface{}{
		"job_posting":  page,
		"company_name": company,
	})
	if err != nil {
		return "", err
	}
	if report.Incomplete {
		return "", errors.New(errors.ErrCodeTaskExecution,
			"analysis pipeline returned an incomplete report",
			errors.WithPipeline(PipelineJobAnalysis))
	}
	if report.Markdown == "" {
		return "", errors.New(errors.ErrCodeInternal,
			"analysis pipeline produced no report")
	}
	return report.Markdown, nil
}

// companyPrefixes are the labels job postings commonly use before the
// company name, checked in order.
var companyPrefixes = []string{
	"Company Name:",
	"Company:",
	"Organization:",
	"Employer:",
}

// CompanyName extracts the company name from job posting text, falling back
// to "Unknown Company" when no labeled line is found.
func CompanyName(jobDetails string) string {
	for _, prefix := range companyPrefixes {
		_, after, found := strings.Cut(jobDetails, prefix)
		if !found {
			continue
		}
		line := after
		if idx := strings.IndexByte(line, '\n'); idx >= 0 {
			line = line[:idx]
		}
		if name := strings.TrimSpace(line); name != "" {
			return name
		}
	}
	return "Unknown Company"
}
