// Package llm wraps the Gemini backends behind a single Generator interface.
package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Generator produces text from a prompt
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	GenerateWithSystem(ctx context.Context, system, prompt string) (string, error)
	Close() error
}

// Options configures a Gemini backend
type Options struct {
	Backend      string // "gemini" or "vertex"
	APIKey       string
	Project      string
	Location     string
	Model        string
	Temperature  float32
	RequestDelay time.Duration
}

const (
	defaultModel = "gemini-2.5-flash"
	defaultTopP  = 0.95
	defaultTopK  = 40
)

// New builds the configured backend wrapped with request pacing and rate limit retries
func New(ctx context.Context, opts Options, logger *zap.Logger) (Generator, error) {
	if opts.Model == "" {
		opts.Model = defaultModel
	}

	var (
		g   Generator
		err error
	)
	switch opts.Backend {
	case "", "gemini":
		g, err = NewGeminiClient(ctx, opts)
	case "vertex":
		g, err = NewVertexAIClient(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown llm backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}

	delay := opts.RequestDelay
	if delay <= 0 {
		delay = requestDelay
	}
	return NewPaced(g, delay, logger), nil
}
