package llm

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"
)

// GeminiClient calls the Gemini API with an API key
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiClient creates a Gemini API client. The key falls back to GEMINI_API_KEY.
func NewGeminiClient(ctx context.Context, opts Options) (*GeminiClient, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = defaultModel
	}

	return &GeminiClient{client: client, model: model, temperature: opts.Temperature}, nil
}

// GenerateContent sends a prompt to the model and returns the response text
func (g *GeminiClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return g.GenerateWithSystem(ctx, "", prompt)
}

// GenerateWithSystem sends a prompt with a system instruction
func (g *GeminiClient) GenerateWithSystem(ctx context.Context, system, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
		TopP:        genai.Ptr[float32](defaultTopP),
		TopK:        genai.Ptr[float32](defaultTopK),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("no response candidates returned")
	}

	return result.Text(), nil
}

// Close is a no-op; the Gemini client holds no resources that need releasing
func (g *GeminiClient) Close() error {
	return nil
}
