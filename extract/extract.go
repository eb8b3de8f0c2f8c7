// Package extract converts uploaded documents into plain text for the
// pipeline. It handles PDF and DOCX resumes plus plain text, and validates
// uploads before any model call spends tokens on them.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"github.com/nefro313/jobfit-ai-backend/errors"
)

// MIME types accepted by Text.
const (
	MimePDF  = "application/pdf"
	MimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText = "text/plain"
)

// Text extracts plain text from a document of the given MIME type.
func Text(mime string, data []byte) (string, error) {
	switch mime {
	case MimeText:
		return strings.TrimSpace(string(data)), nil

	case MimePDF:
		return pdfText(data)

	case MimeDocx:
		return docxText(data)

	default:
		return "", errors.New(errors.ErrCodeUnsupported,
			fmt.Sprintf("unsupported document type %q", mime))
	}
}

func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.Wrap(err, "failed to read pdf")
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Pages with broken font maps are skipped rather than
			// failing the whole document.
			continue
		}
		b.WriteString(text)
	}
	return strings.TrimSpace(b.String()), nil
}

func docxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.Wrap(err, "failed to parse docx")
	}
	defer doc.Close()

	return strings.TrimSpace(doc.Editable().GetContent()), nil
}

// ReadAll drains an upload stream, refusing anything over limit bytes.
func ReadAll(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("upload exceeds maximum size of %d bytes", limit))
	}
	return data, nil
}
