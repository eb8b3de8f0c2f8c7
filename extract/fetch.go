package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/nefro313/jobfit-ai-backend/errors"
)

const (
	defaultFetchTimeout = 30 * time.Second
	maxPageSize         = 5 * 1024 * 1024
	fetchUserAgent      = "jobfit-ai-backend/1.0"
)

// Fetcher downloads a web page and reduces it to readable text. Job
// postings are fetched this way before the analysis pipeline sees them.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher with a request timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: defaultFetchTimeout},
	}
}

// Fetch downloads the page at rawURL and returns its visible text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("invalid job posting URL %q", rawURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrCodeNetworkErr,
			"failed to fetch job posting")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.New(errors.ErrCodeNetworkErr,
			fmt.Sprintf("job posting returned status %d", resp.StatusCode),
			errors.WithMetadata("url", rawURL))
	}

	body, err := ReadAll(resp.Body, maxPageSize)
	if err != nil {
		return "", err
	}

	text := htmlToText(body)
	if text == "" {
		return "", errors.New(errors.ErrCodeInvalidInput,
			"job posting page contains no readable text")
	}
	return text, nil
}

// htmlToText walks the token stream and keeps visible text, joining blocks
// with newlines. Script and style contents are dropped.
func htmlToText(body []byte) string {
	tokenizer := html.NewTokenizer(strings.NewReader(string(body)))

	var b strings.Builder
	skipDepth := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())

		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if skippedTag(string(name)) {
				skipDepth++
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if skippedTag(string(name)) && skipDepth > 0 {
				skipDepth--
			}

		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := strings.TrimSpace(string(tokenizer.Text()))
			if text == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(text)
		}
	}
}

func skippedTag(name string) bool {
	switch name {
	case "script", "style", "noscript", "iframe", "svg":
		return true
	}
	return false
}
