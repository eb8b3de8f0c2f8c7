package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/nefro313/jobfit-ai-backend/errors"
	"github.com/nefro313/jobfit-ai-backend/extract"
	"github.com/nefro313/jobfit-ai-backend/service"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleATSCheck accepts a multipart form with a "resume" PDF and a
// "job_description" field, and returns the compatibility report.
func (s *Server) handleATSCheck(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("resume")
	if err != nil {
		writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "resume file is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if err := extract.ValidateResume(header.Filename, contentType, header.Size); err != nil {
		writeError(w, r, err)
		return
	}

	resumePDF, err := extract.ReadAll(file, extract.MaxResumeSize)
	if err != nil {
		writeError(w, r, err)
		return
	}

	report, err := s.ats.Check(r.Context(), resumePDF, r.FormValue("job_description"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type jobAnalyseRequest struct {
	URL string `json:"url"`
}

// handleJobAnalyse accepts {"url": ...} and returns a markdown insights
// report about the posting and its company.
func (s *Server) handleJobAnalyse(w http.ResponseWriter, r *http.Request) {
	var req jobAnalyseRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, r, err)
		return
	}

	report, err := s.analyse.Analyse(r.Context(), req.URL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"report": report})
}

type hrAskRequest struct {
	Question string `json:"question"`
}

// handleHRAsk accepts {"question": ...} and returns a grounded answer.
func (s *Server) handleHRAsk(w http.ResponseWriter, r *http.Request) {
	var req hrAskRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, r, err)
		return
	}

	answer, err := s.hrqa.Ask(r.Context(), req.Question)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

// handleResumeTailor accepts a multipart form with a "resume" PDF plus
// "job_posting_url", "github_url" and "write_up" fields.
func (s *Server) handleResumeTailor(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("resume")
	if err != nil {
		writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "resume file is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if err := extract.ValidateResume(header.Filename, contentType, header.Size); err != nil {
		writeError(w, r, err)
		return
	}

	resumePDF, err := extract.ReadAll(file, extract.MaxResumeSize)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.resume.Tailor(r.Context(), service.TailorRequest{
		ResumePDF:       resumePDF,
		JobPostingURL:   r.FormValue("job_posting_url"),
		GithubURL:       r.FormValue("github_url"),
		PersonalWriteup: r.FormValue("write_up"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func decodeJSON(body io.Reader, v interface{}) error {
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeInvalidInput,
			"request body is not valid JSON")
	}
	return nil
}
