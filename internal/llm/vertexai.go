package llm

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/vertexai/genai"
)

// VertexAIClient wraps the Vertex AI Gemini API
type VertexAIClient struct {
	client      *genai.Client
	modelName   string
	temperature float32
	projectID   string
	location    string
}

// NewVertexAIClient creates a new Vertex AI client. Project and location fall back to
// GOOGLE_CLOUD_PROJECT and GOOGLE_CLOUD_LOCATION.
func NewVertexAIClient(ctx context.Context, opts Options) (*VertexAIClient, error) {
	projectID := opts.Project
	if projectID == "" {
		projectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if projectID == "" {
		return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT environment variable not set")
	}

	location := opts.Location
	if location == "" {
		location = os.Getenv("GOOGLE_CLOUD_LOCATION")
	}
	if location == "" {
		location = "us-central1"
	}

	client, err := genai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = defaultModel
	}

	return &VertexAIClient{
		client:      client,
		modelName:   model,
		temperature: opts.Temperature,
		projectID:   projectID,
		location:    location,
	}, nil
}

func (v *VertexAIClient) model(system string) *genai.GenerativeModel {
	model := v.client.GenerativeModel(v.modelName)
	model.SetTemperature(v.temperature)
	model.SetTopK(defaultTopK)
	model.SetTopP(defaultTopP)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	return model
}

// GenerateContent sends a prompt to the model and returns the response
func (v *VertexAIClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return v.GenerateWithSystem(ctx, "", prompt)
}

// GenerateWithSystem sends a prompt with a system instruction
func (v *VertexAIClient) GenerateWithSystem(ctx context.Context, system, prompt string) (string, error) {
	resp, err := v.model(system).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response candidates returned")
	}

	var result string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			result += string(text)
		}
	}

	return result, nil
}

// Close closes the Vertex AI client
func (v *VertexAIClient) Close() error {
	return v.client.Close()
}
