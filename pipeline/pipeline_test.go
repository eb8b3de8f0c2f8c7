package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nefro313/jobfit-ai-backend/errors"
	"github.com/nefro313/jobfit-ai-backend/llm"
	"github.com/nefro313/jobfit-ai-backend/logging"
	"github.com/nefro313/jobfit-ai-backend/prompt"
)

// atsFixture is a trimmed version of the ATS pipeline definition: five
// sequential tasks, the last of which tolerates failure.
const atsFixture = `
agents:
  resume_parser:
    role: "Resume Parser"
    goal: "Extract structured data from resumes"
    backstory: "You parse resumes for applicant tracking systems."
  jd_analyzer:
    role: "Job Description Analyzer"
    goal: "Extract requirements from job descriptions"
    backstory: "You analyze job postings."
  keyword_matcher:
    role: "Keyword Matcher"
    goal: "Match resume keywords against job requirements"
    backstory: "You compare candidate profiles to requirements."
  scoring_agent:
    role: "Scoring Agent"
    goal: "Score resume/job fit"
    backstory: "You compute weighted compatibility scores."
  feedback_agent:
    role: "Feedback Specialist"
    goal: "Write actionable recommendations"
    backstory: "You coach candidates."

tasks:
  parse_task:
    description: "TASK:parse_task Resume: {resume_text}"
    agent: resume_parser
    inputs: [resume_text]
    schema:
      name: {type: string, required: true}
      skills: {type: array}
      certifications: {type: array}
  jd_analysis_task:
    description: "TASK:jd_analysis_task JD: {job_description}"
    agent: jd_analyzer
    inputs: [job_description]
    schema:
      required_skills: {type: array}
      nice_to_have: {type: array}
  match_task:
    description: "TASK:match_task skills={skills} required={required_skills}"
    agent: keyword_matcher
    schema:
      matched_keywords: {type: array}
      missing_keywords: {type: array}
  score_task:
    description: "TASK:score_task matched={matched_keywords}"
    agent: scoring_agent
    schema:
      overall_score: {type: number}
      breakdown:
        type: object
        fields:
          skills_score: {type: number}
          experience_score: {type: number}
          education_score: {type: number}
          keywords_score: {type: number}
  feedback_task:
    description: "TASK:feedback_task score={overall_score}"
    agent: feedback_agent
    fallback: "No recommendations."

pipeline:
  name: ats
  tasks: [parse_task, jd_analysis_task, match_task, score_task, feedback_task]
  output: json
  tolerant: [feedback_task]
`

func loadStore(t *testing.T) *prompt.Store {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ats.yaml"), []byte(atsFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	s := prompt.NewStore()
	if err := s.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	return s
}

func quietLogger() *logging.Logger {
	log := logging.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logging.LevelError)
	return log
}

func execTask(t *testing.T, store *prompt.Store, mock llm.Provider, taskName string, vars map[string]interface{}) (*TaskResult, error) {
	t.Helper()
	exec := NewExecutor(store, mock, WithLogger(quietLogger()))
	task, err := store.Task(taskName)
	if err != nil {
		t.Fatal(err)
	}
	agent, err := store.AgentFor(task)
	if err != nil {
		t.Fatal(err)
	}
	return exec.Execute(context.Background(), task, agent, vars)
}

func TestExecuteWellFormed(t *testing.T) {
	store := loadStore(t)
	mock := llm.NewMockProvider()
	mock.SetResponse(`{"name": "Jordan Example", "skills": ["go"], "certifications": []}`)

	result, err := execTask(t, store, mock, "parse_task", map[string]interface{}{
		"resume_text": "Jordan Example, Go engineer.",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if result.Status != StatusOK {
		t.Errorf("Expected ok, got %s", result.Status)
	}
	if len(result.ParsedJSON) != 3 {
		t.Errorf("Expected exactly the 3 declared keys, got %v", result.ParsedJSON)
	}
	for _, key := range []string{"name", "skills", "certifications"} {
		if _, ok := result.ParsedJSON[key]; !ok {
			t.Errorf("Missing declared key %q", key)
		}
	}
}

func TestExecuteFillsMissingArrays(t *testing.T) {
	store := loadStore(t)
	mock := llm.NewMockProvider()
	// Resume with no certifications: the model omits the key entirely.
	mock.SetResponse(`{"name": "Jordan Example", "skills": ["go"]}`)

	result, err := execTask(t, store, mock, "parse_task", map[string]interface{}{
		"resume_text": "resume",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	certs, ok := result.ParsedJSON["certifications"].([]interface{})
	if !ok || len(certs) != 0 {
		t.Errorf("Expected certifications: [], got %v", result.ParsedJSON["certifications"])
	}
}

func TestExecuteDefaultsNumericScore(t *testing.T) {
	store := loadStore(t)
	mock := llm.NewMockProvider()
	// Nothing matched: the model emits only the breakdown and omits the
	// overall score, which defaults to zero rather than failing the stage.
	mock.SetResponse(`{"breakdown": {"skills_score": 0, "experience_score": 0, "education_score": 0, "keywords_score": 0}}`)

	result, err := execTask(t, store, mock, "score_task", map[string]interface{}{
		"matched_keywords": []interface{}{},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Status != StatusOK {
		t.Fatalf("Expected ok, got %s", result.Status)
	}
	if result.ParsedJSON["overall_score"] != float64(0) {
		t.Errorf("Expected overall_score 0, got %v", result.ParsedJSON["overall_score"])
	}
}

func TestExecuteRepairsFencedJSON(t *testing.T) {
	store := loadStore(t)
	mock := llm.NewMockProvider()
	mock.SetResponse("```json\n{\"name\": \"Jordan\", \"skills\": []}\n```")

	result, err := execTask(t, store, mock, "parse_task", map[string]interface{}{
		"resume_text": "resume",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Status != StatusOK {
		t.Errorf("Expected repair to succeed, got %s", result.Status)
	}
	if result.ParsedJSON["name"] != "Jordan" {
		t.Errorf("Unexpected parsed output: %v", result.ParsedJSON)
	}
}

func TestExecuteMalformedNeverRaises(t *testing.T) {
	store := loadStore(t)

	for _, response := range []string{
		"I could not parse the resume, sorry!",
		"```json\nnot json at all\n```",
		`["array", "not", "object"]`,
	} {
		mock := llm.NewMockProvider()
		mock.SetResponse(response)

		result, err := execTask(t, store, mock, "parse_task", map[string]interface{}{
			"resume_text": "resume",
		})
		if err != nil {
			t.Fatalf("Malformed output must not raise, got: %v", err)
		}
		if result.Status != StatusMalformed {
			t.Errorf("Expected malformed for %q, got %s", response, result.Status)
		}
		if result.ParsedJSON == nil || len(result.ParsedJSON) != 0 {
			t.Errorf("Expected empty-object sentinel, got %v", result.ParsedJSON)
		}
	}
}

func TestExecuteSchemaViolationRecovered(t *testing.T) {
	store := loadStore(t)
	mock := llm.NewMockProvider()
	// Valid JSON, but an undeclared key: schema validation fails and is
	// recovered with the sentinel, not propagated.
	mock.SetResponse(`{"name": "J", "skills": [], "confidence": 0.8}`)

	result, err := execTask(t, store, mock, "parse_task", map[string]interface{}{
		"resume_text": "resume",
	})
	if err != nil {
		t.Fatalf("Schema violation must not raise, got: %v", err)
	}
	if result.Status != StatusMalformed {
		t.Errorf("Expected malformed, got %s", result.Status)
	}
}

func TestExecuteMissingVariable(t *testing.T) {
	store := loadStore(t)
	mock := llm.NewMockProvider()

	_, err := execTask(t, store, mock, "parse_task", map[string]interface{}{})
	if err == nil {
		t.Fatal("Expected missing-variable error")
	}
	if !errors.Is(err, errors.ErrCodeMissingVariable) {
		t.Errorf("Expected MISSING_VARIABLE, got %v", err)
	}
	if mock.CallCount() != 0 {
		t.Error("Provider must not be invoked when rendering fails")
	}
}

func TestExecuteProviderError(t *testing.T) {
	store := loadStore(t)
	mock := llm.NewMockProvider()
	mock.SetError(context.DeadlineExceeded)

	_, err := execTask(t, store, mock, "parse_task", map[string]interface{}{
		"resume_text": "resume",
	})
	if err == nil {
		t.Fatal("Expected task execution error")
	}
	if !errors.Is(err, errors.ErrCodeTaskExecution) {
		t.Errorf("Expected TASK_EXECUTION, got %v", err)
	}
	perr := errors.AsPipelineError(err)
	if perr == nil || perr.(*errors.Error).Task() != "parse_task" {
		t.Error("Error should carry the task name")
	}
}

// stageResponses answers each task by marker with a canned response.
func stageResponses(overrides map[string]string) func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	defaults := map[string]string{
		"parse_task":       `{"name": "Jordan", "skills": ["go", "sql"], "certifications": []}`,
		"jd_analysis_task": `{"required_skills": ["go", "kubernetes"], "nice_to_have": ["grpc"]}`,
		"match_task":       `{"matched_keywords": ["go"], "missing_keywords": ["kubernetes"]}`,
		"score_task":       `{"overall_score": 62, "breakdown": {"skills_score": 70, "experience_score": 60, "education_score": 55, "keywords_score": 63}}`,
		"feedback_task":    "Add kubernetes experience to your resume.",
	}
	return func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		var user string
		for _, m := range req.Messages {
			if m.Role == "user" {
				user = m.Content
			}
		}
		for task, response := range overrides {
			if strings.Contains(user, "TASK:"+task) {
				if response == "ERROR" {
					return nil, context.DeadlineExceeded
				}
				return &llm.ChatResponse{Content: response, Model: "mock"}, nil
			}
		}
		for task, response := range defaults {
			if strings.Contains(user, "TASK:"+task) {
				return &llm.ChatResponse{Content: response, Model: "mock"}, nil
			}
		}
		return &llm.ChatResponse{Content: "{}", Model: "mock"}, nil
	}
}

func newOrchestrator(t *testing.T, store *prompt.Store, mock *llm.MockProvider) *Orchestrator {
	t.Helper()
	exec := NewExecutor(store, mock, WithLogger(quietLogger()))
	return NewOrchestrator(store, exec, quietLogger())
}

func atsInputs() map[string]interface{} {
	return map[string]interface{}{
		"resume_text":     "Jordan Example. Go engineer.",
		"job_description": "We need Go and Kubernetes. Requirements: ...",
	}
}

func TestRunFullPipeline(t *testing.T) {
	store := loadStore(t)
	mock := llm.NewMockProvider()
	mock.ChatFunc = stageResponses(nil)

	report, err := newOrchestrator(t, store, mock).Run(context.Background(), "ats", atsInputs())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Incomplete {
		t.Error("Expected complete run")
	}
	if report.RunID == "" {
		t.Error("Expected run ID")
	}
	if len(report.Results) != 5 {
		t.Fatalf("Expected 5 stage results, got %d", len(report.Results))
	}

	score, ok := report.Stages["score_task"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected score stage output, got %T", report.Stages["score_task"])
	}
	if score["overall_score"] != float64(62) {
		t.Errorf("Unexpected overall score: %v", score["overall_score"])
	}
	if report.Stages["feedback_task"] != "Add kubernetes experience to your resume." {
		t.Errorf("Unexpected feedback stage: %v", report.Stages["feedback_task"])
	}
}

func TestRunOrderInvariant(t *testing.T) {
	store := loadStore(t)
	mock := llm.NewMockProvider()

	var order []string
	base := stageResponses(nil)
	mock.ChatFunc = func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		for _, m := range req.Messages {
			if m.Role != "user" {
				continue
			}
			if idx := strings.Index(m.Content, "TASK:"); idx >= 0 {
				name := m.Content[idx+len("TASK:"):]
				if end := strings.IndexByte(name, ' '); end >= 0 {
					name = name[:end]
				}
				order = append(order, name)
			}
		}
		return base(ctx, req)
	}

	_, err := newOrchestrator(t, store, mock).Run(context.Background(), "ats", atsInputs())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	matchIdx, parseIdx, jdIdx := -1, -1, -1
	for i, name := range order {
		switch name {
		case "match_task":
			matchIdx = i
		case "parse_task":
			parseIdx = i
		case "jd_analysis_task":
			jdIdx = i
		}
	}
	if parseIdx < 0 || jdIdx < 0 || matchIdx < 0 {
		t.Fatalf("Expected all stages to run, got order %v", order)
	}
	if matchIdx < parseIdx || matchIdx < jdIdx {
		t.Errorf("match_task must run after parse and jd analysis, got order %v", order)
	}
}

func TestRunChainsOutputs(t *testing.T) {
	store := loadStore(t)
	mock := llm.NewMockProvider()

	var matchPrompt string
	base := stageResponses(nil)
	mock.ChatFunc = func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		for _, m := range req.Messages {
			if m.Role == "user" && strings.Contains(m.Content, "TASK:match_task") {
				matchPrompt = m.Content
			}
		}
		return base(ctx, req)
	}

	_, err := newOrchestrator(t, store, mock).Run(context.Background(), "ats", atsInputs())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// match_task's variables come from the two prior stages' parsed output.
	if !strings.Contains(matchPrompt, `"go"`) {
		t.Errorf("Expected parsed skills in match prompt, got: %s", matchPrompt)
	}
	if !strings.Contains(matchPrompt, "kubernetes") {
		t.Errorf("Expected required skills in match prompt, got: %s", matchPrompt)
	}
}

func TestRunToleratedTimeout(t *testing.T) {
	store := loadStore(t)
	mock := llm.NewMockProvider()
	mock.ChatFunc = stageResponses(map[string]string{"feedback_task": "ERROR"})

	report, err := newOrchestrator(t, store, mock).Run(context.Background(), "ats", atsInputs())
	if err != nil {
		t.Fatalf("Tolerated stage failure must not abort the run: %v", err)
	}

	if len(report.Results) != 5 {
		t.Fatalf("Expected all 5 stages in report, got %d", len(report.Results))
	}
	feedback := report.Results[4]
	if !feedback.Degraded {
		t.Error("Expected feedback stage to be degraded")
	}
	if feedback.RawOutput != "No recommendations." {
		t.Errorf("Expected fallback text, got %q", feedback.RawOutput)
	}
	// Earlier stages are intact.
	if _, ok := report.Stages["score_task"].(map[string]interface{}); !ok {
		t.Error("Expected earlier stage outputs preserved")
	}
}

func TestRunShortCircuitsOnMalformed(t *testing.T) {
	store := loadStore(t)
	mock := llm.NewMockProvider()
	mock.ChatFunc = stageResponses(map[string]string{"jd_analysis_task": "not json"})

	report, err := newOrchestrator(t, store, mock).Run(context.Background(), "ats", atsInputs())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !report.Incomplete {
		t.Error("Expected incomplete marker")
	}
	if len(report.Results) != 2 {
		t.Errorf("Expected run to stop after the malformed stage, got %d results", len(report.Results))
	}
	last := report.Results[len(report.Results)-1]
	if last.TaskName != "jd_analysis_task" || last.Status != StatusMalformed {
		t.Errorf("Unexpected final stage: %+v", last)
	}
}

func TestRunRequiredProviderFailureAborts(t *testing.T) {
	store := loadStore(t)
	mock := llm.NewMockProvider()
	mock.ChatFunc = stageResponses(map[string]string{"parse_task": "ERROR"})

	_, err := newOrchestrator(t, store, mock).Run(context.Background(), "ats", atsInputs())
	if err == nil {
		t.Fatal("Expected run to abort on required stage failure")
	}
	if !errors.Is(err, errors.ErrCodeTaskExecution) {
		t.Errorf("Expected TASK_EXECUTION, got %v", err)
	}
}

// tailorFixture is a two-stage markdown pipeline whose first stage has a
// strict JSON contract. Used to check that a failed schema stage never leaks
// raw model text into the compiled report.
const tailorFixture = `
agents:
  tailor:
    role: "Resume Tailor"
    goal: "Rewrite resumes for specific postings"
    backstory: "You tailor resumes."
  coach:
    role: "Interview Coach"
    goal: "Prepare candidates for interviews"
    backstory: "You write interview prep notes."

tasks:
  tailor_task:
    description: "TASK:tailor_task Resume: {resume_text}"
    agent: tailor
    inputs: [resume_text]
    output_var: tailored_resume
    schema:
      summary: {type: string, required: true}
      skills: {type: array}
  prep_task:
    description: "TASK:prep_task Tailored: {tailored_resume}"
    agent: coach

pipeline:
  name: tailor
  tasks: [tailor_task, prep_task]
  output: markdown
`

// chainFixture binds its first stage's output to a variable; the second
// stage's template also references a variable no one supplies.
const chainFixture = `
agents:
  writer:
    role: "Writer"
    goal: "Write documents"
    backstory: "You write documents from outlines."

tasks:
  outline_task:
    description: "TASK:outline_task Topic: {topic}"
    agent: writer
    inputs: [topic]
    output_var: outline
  draft_task:
    description: "TASK:draft_task Outline: {outline} Notes: {notes}"
    agent: writer

pipeline:
  name: draft
  tasks: [outline_task, draft_task]
  output: markdown
`

func loadStoreWith(t *testing.T, files map[string]string) *prompt.Store {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	s := prompt.NewStore()
	if err := s.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	return s
}

func TestRunEmptyOutputShortCircuits(t *testing.T) {
	store := loadStore(t)
	mock := llm.NewMockProvider()
	mock.ChatFunc = stageResponses(map[string]string{"parse_task": ""})

	report, err := newOrchestrator(t, store, mock).Run(context.Background(), "ats", atsInputs())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !report.Incomplete {
		t.Error("Expected incomplete marker for empty required stage")
	}
	if len(report.Results) != 1 {
		t.Errorf("Expected run to stop after the empty stage, got %d results", len(report.Results))
	}
	if report.Results[0].Status != StatusEmpty {
		t.Errorf("Expected empty status, got %s", report.Results[0].Status)
	}
}

func TestRunIncompleteSkipsMarkdownReport(t *testing.T) {
	store := loadStoreWith(t, map[string]string{"tailor.yaml": tailorFixture})
	mock := llm.NewMockProvider()
	mock.ChatFunc = stageResponses(map[string]string{
		"tailor_task": "Sorry, I cannot produce a resume today!",
	})

	report, err := newOrchestrator(t, store, mock).Run(context.Background(), "tailor", map[string]interface{}{
		"resume_text": "Jordan Example. Go engineer.",
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !report.Incomplete {
		t.Error("Expected incomplete marker")
	}
	if report.Markdown != "" {
		t.Errorf("Expected no compiled report for an incomplete run, got %q", report.Markdown)
	}
}

func TestRunMissingInputFailsFast(t *testing.T) {
	store := loadStore(t)
	mock := llm.NewMockProvider()
	mock.ChatFunc = stageResponses(nil)

	_, err := newOrchestrator(t, store, mock).Run(context.Background(), "ats", map[string]interface{}{
		"resume_text": "Jordan Example. Go engineer.",
	})
	if !errors.Is(err, errors.ErrCodeMissingVariable) {
		t.Fatalf("Expected MISSING_VARIABLE, got %v", err)
	}
	if mock.CallCount() != 0 {
		t.Errorf("Expected no provider calls before input validation, got %d", mock.CallCount())
	}
}

func TestRunUpstreamGapReportsTaskExecution(t *testing.T) {
	store := loadStoreWith(t, map[string]string{"chain.yaml": chainFixture})
	mock := llm.NewMockProvider()
	mock.ChatFunc = stageResponses(map[string]string{"outline_task": "1. Intro\n2. Body"})

	_, err := newOrchestrator(t, store, mock).Run(context.Background(), "draft", map[string]interface{}{
		"topic": "hiring",
	})
	if err == nil {
		t.Fatal("Expected run to fail on the unproduced variable")
	}
	if !errors.Is(err, errors.ErrCodeTaskExecution) {
		t.Errorf("Expected TASK_EXECUTION for a mid-run variable gap, got %v", err)
	}
}

func TestRunUnknownPipeline(t *testing.T) {
	store := loadStore(t)
	mock := llm.NewMockProvider()

	_, err := newOrchestrator(t, store, mock).Run(context.Background(), "nope", nil)
	if !errors.Is(err, errors.ErrCodeUnknownPipeline) {
		t.Errorf("Expected UNKNOWN_PIPELINE, got %v", err)
	}
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{`{"a": 1}`, `{"a": 1}`},
		{"  {\"a\": 1}  ", `{"a": 1}`},
	}
	for _, tt := range tests {
		if got := CleanJSON(tt.in); got != tt.want {
			t.Errorf("CleanJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanMarkdown(t *testing.T) {
	in := "```markdown\n# Report\nBody\n```"
	want := "# Report\nBody"
	if got := CleanMarkdown(in); got != want {
		t.Errorf("CleanMarkdown = %q, want %q", got, want)
	}
}
