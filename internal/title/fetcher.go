// Package title provides best-effort retrieval of page titles for
// shortened URLs. Every failure mode degrades to an absent title;
// shortening never depends on this succeeding.
package title

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds the whole fetch, independent of any caller retry timers.
	DefaultTimeout = 5 * time.Second

	// maxBodyBytes caps how much of the document is read. Titles live
	// in the head, so 64KB is plenty.
	maxBodyBytes = 64 * 1024

	// maxTitleLen caps the extracted title length, in runes. Byte
	// slicing would split multi-byte titles mid-rune.
	maxTitleLen = 200

	userAgent = "Mozilla/5.0 (compatible; s8l-bot/1.0)"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Fetcher retrieves page titles over HTTP.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewFetcher creates a title fetcher with the default timeout.
func NewFetcher(logger *zap.Logger) *Fetcher {
	return NewFetcherWithClient(&http.Client{}, DefaultTimeout, logger)
}

// NewFetcherWithClient creates a title fetcher with a custom client and
// timeout, used by tests and by callers that tune transport settings.
func NewFetcherWithClient(client *http.Client, timeout time.Duration, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client:  client,
		timeout: timeout,
		logger:  logger,
	}
}

// Fetch returns the page title for url, or "" when the title could not
// be determined for any reason. It never returns an error.
func (f *Fetcher) Fetch(ctx context.Context, url string) string {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug("title fetch failed", zap.String("url", url), zap.Error(err))

		return ""
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusBadRequest {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return ""
	}

	return cleanTitle(doc.Find("title").First().Text())
}

func cleanTitle(raw string) string {
	title := strings.TrimSpace(whitespaceRun.ReplaceAllString(raw, " "))
	if runes := []rune(title); len(runes) > maxTitleLen {
		title = string(runes[:maxTitleLen])
	}

	return title
}
