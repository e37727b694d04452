// Package scraper fetches job postings and reduces them to plain text.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const (
	// MinContentLength is the shortest extracted text accepted as a job description
	MinContentLength = 100

	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 5 << 20
	userAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var (
	// ErrBlocked is returned when the site answers 403 Forbidden
	ErrBlocked = errors.New("website blocked the request (403 Forbidden)")
	// ErrInsufficientContent is returned when the page yields too little text
	ErrInsufficientContent = errors.New("unable to extract sufficient job description content")
)

// StatusError is a non-success HTTP status other than 403
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error %d: unable to access job posting", e.Code)
}

var removeSelectors = []string{"script", "style", "header", "footer", "nav", "noscript", "iframe", "svg"}

// Scraper downloads job pages
type Scraper struct {
	client         *http.Client
	maxTries       uint
	initialBackoff time.Duration
	logger         *zap.Logger
}

// New returns a scraper with a 15 second timeout that retries 429 and 5xx responses
func New(logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{
		client:         &http.Client{Timeout: defaultTimeout},
		maxTries:       3,
		initialBackoff: time.Second,
		logger:         logger,
	}
}

// WithHTTPClient replaces the underlying HTTP client
func (s *Scraper) WithHTTPClient(c *http.Client) *Scraper {
	s.client = c
	return s
}

// ExtractJobDescription fetches url and returns its readable text, one line per paragraph
func (s *Scraper) ExtractJobDescription(ctx context.Context, url string) (string, error) {
	body, err := s.fetch(ctx, url)
	if err != nil {
		return "", err
	}

	text, err := HTMLToText(body)
	if err != nil {
		return "", err
	}
	if len(text) < MinContentLength {
		return "", ErrInsufficientContent
	}

	s.logger.Debug("scraped job description", zap.String("url", url), zap.Int("chars", len(text)))
	return text, nil
}

func (s *Scraper) fetch(ctx context.Context, url string) (string, error) {
	operation := func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", backoff.Permanent(err)
		}
		setBrowserHeaders(req)

		resp, err := s.client.Do(req)
		if err != nil {
			return "", backoff.Permanent(fmt.Errorf("failed to fetch job posting: %w", err))
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusForbidden:
			return "", backoff.Permanent(ErrBlocked)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			s.logger.Warn("retrying job posting fetch", zap.String("url", url), zap.Int("status", resp.StatusCode))
			return "", &StatusError{Code: resp.StatusCode}
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			return "", backoff.Permanent(&StatusError{Code: resp.StatusCode})
		}

		b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return "", backoff.Permanent(fmt.Errorf("failed to read job posting: %w", err))
		}
		return string(b), nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.initialBackoff
	bo.MaxInterval = 10 * s.initialBackoff

	return backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(s.maxTries))
}

func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("DNT", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Cache-Control", "max-age=0")
}

// HTMLToText strips page chrome and converts the remaining body to markdown,
// falling back to the raw text when conversion fails.
func HTMLToText(page string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find(strings.Join(removeSelectors, ", ")).Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}

	text := body.Text()
	if inner, err := body.Html(); err == nil {
		if md, err := htmltomarkdown.ConvertString(inner); err == nil {
			text = md
		}
	}

	return cleanLines(text), nil
}

func cleanLines(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
