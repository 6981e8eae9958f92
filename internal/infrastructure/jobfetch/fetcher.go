// Package jobfetch downloads a job posting page and reduces it to its description text.
package jobfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
)

const (
	maxBodyBytes = 2 << 20
	maxTextRunes = 8000
	userAgent    = "Mozilla/5.0 (compatible; AskACoach/1.0)"
)

var contentSelectors = []string{
	".job-description",
	".job-content",
	"#job-description",
	"#job-content",
	".posting-content",
	".job-details",
	"[data-testid='job-description']",
	"main",
	"article",
	".content",
	"#content",
}

type Fetcher struct {
	client *http.Client
}

func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", domain.WrapError(domain.ErrValidation, "fetch job posting", fmt.Errorf("invalid url %q", rawURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create job posting request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch job posting: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch job posting: status %s", resp.Status)
	}

	text, err := ExtractDescription(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", domain.WrapError(domain.ErrValidation, "fetch job posting", fmt.Errorf("no description text at %s", parsed.Host))
	}
	return text, nil
}

// ExtractDescription strips page chrome and returns the first matching content block.
func ExtractDescription(html io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(html)
	if err != nil {
		return "", fmt.Errorf("parse job posting html: %w", err)
	}
	doc.Find("nav, footer, header, script, style, noscript, .sidebar, .cookie-banner, .apply-button").Remove()

	content := doc.Find("body")
	for _, selector := range contentSelectors {
		if sel := doc.Find(selector); sel.Length() > 0 {
			content = sel.First()
			break
		}
	}

	var lines []string
	for _, line := range strings.Split(content.Text(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	text := strings.Join(lines, "\n")
	if r := []rune(text); len(r) > maxTextRunes {
		text = string(r[:maxTextRunes])
	}
	return text, nil
}
