package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	requestDelay = 4 * time.Second  // minimum spacing between requests
	maxRetries   = 3                 // retries after a rate limit error
	retryBackoff = 10 * time.Second // multiplied by the attempt number
)

// Paced spaces out calls to the wrapped Generator and retries rate limited requests
type Paced struct {
	next       Generator
	limiter    *rate.Limiter
	backoff    time.Duration
	maxRetries int
	logger     *zap.Logger
}

// NewPaced wraps g so that requests are at least delay apart
func NewPaced(g Generator, delay time.Duration, logger *zap.Logger) *Paced {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Paced{
		next:       g,
		limiter:    rate.NewLimiter(rate.Every(delay), 1),
		backoff:    retryBackoff,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// GenerateContent implements Generator
func (p *Paced) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return p.do(ctx, func() (string, error) {
		return p.next.GenerateContent(ctx, prompt)
	})
}

// GenerateWithSystem implements Generator
func (p *Paced) GenerateWithSystem(ctx context.Context, system, prompt string) (string, error) {
	return p.do(ctx, func() (string, error) {
		return p.next.GenerateWithSystem(ctx, system, prompt)
	})
}

// Close closes the wrapped generator
func (p *Paced) Close() error {
	return p.next.Close()
}

func (p *Paced) do(ctx context.Context, call func() (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			wait := p.backoff * time.Duration(attempt)
			p.logger.Warn("Rate limit hit, backing off",
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(lastErr))

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return "", err
		}

		out, err := call()
		if err == nil {
			return out, nil
		}
		if !isRateLimitError(err) {
			return "", err
		}
		lastErr = err
	}

	return "", fmt.Errorf("giving up after %d retries: %w", p.maxRetries, lastErr)
}

// isRateLimitError checks if an error is due to rate limiting or exhausted quota
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "resourceexhausted") ||
		strings.Contains(msg, "resource exhausted") ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota")
}
