package extract

import (
	"fmt"
	"strings"

	"github.com/nefro313/jobfit-ai-backend/errors"
)

// MaxResumeSize is the upload limit for resume files.
const MaxResumeSize = 10 * 1024 * 1024

// minJobDescriptionLen is the shortest job description worth analysing.
const minJobDescriptionLen = 50

// requiredJDTerms must appear (any one of them) in a job description for it
// to be considered a real posting rather than arbitrary pasted text.
var requiredJDTerms = []string{"requirements", "skills", "experience", "qualifications"}

// ValidateResume checks an uploaded resume's declared type and size before
// the body is read.
func ValidateResume(filename, contentType string, size int64) error {
	if filename == "" {
		return errors.New(errors.ErrCodeInvalidInput, "resume file is required")
	}
	if size > MaxResumeSize {
		return errors.New(errors.ErrCodeInvalidInput,
			"resume file exceeds maximum size of 10MB",
			errors.WithMetadata("size", fmt.Sprintf("%d", size)))
	}
	if contentType != MimePDF {
		return errors.New(errors.ErrCodeInvalidInput,
			"only PDF files are accepted",
			errors.WithMetadata("content_type", contentType))
	}
	return nil
}

// ValidateJobDescription checks that a job description is long enough and
// mentions at least one of the components a real posting has.
func ValidateJobDescription(text string) error {
	if len(strings.TrimSpace(text)) < minJobDescriptionLen {
		return errors.New(errors.ErrCodeInvalidInput,
			"job description is too short (minimum 50 characters required)")
	}
	lower := strings.ToLower(text)
	for _, term := range requiredJDTerms {
		if strings.Contains(lower, term) {
			return nil
		}
	}
	return errors.New(errors.ErrCodeInvalidInput,
		"job description appears to be missing key components (requirements, skills, etc.)")
}
