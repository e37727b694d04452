package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fmuoria/resume-drive-agent/internal/llm"
)

// ErrEmptyResponse is returned when the model produced no text
var ErrEmptyResponse = errors.New("model returned an empty response")

// recommendationInputLimit caps the job description and resume passed to the recommendations prompt
const recommendationInputLimit = 2000

// Request is the input shared by the generation calls
type Request struct {
	JobDescription         string
	ResumeContent          string
	AdditionalInstructions string
}

// ResumeResult is a tailored resume and the improvement advice produced with it
type ResumeResult struct {
	Content         string `json:"content"`
	Recommendations string `json:"recommendations"`
}

// JobAnalysis is the structured breakdown of a job description
type JobAnalysis struct {
	RequiredSkills   []string `json:"required_skills"`
	ExperienceLevel  string   `json:"experience_level"`
	Education        []string `json:"education"`
	Responsibilities []string `json:"responsibilities"`
	CultureNotes     []string `json:"culture_notes"`
	Raw              string   `json:"raw,omitempty"`
}

// Writer produces resumes, cover letters and advice using an LLM
type Writer struct {
	llmClient llm.Generator
}

// NewWriter creates a new writer instance
func NewWriter(llmClient llm.Generator) *Writer {
	return &Writer{
		llmClient: llmClient,
	}
}

// GenerateResume creates a resume tailored to the job. Recommendations are produced only when withRecommendations is set.
func (w *Writer) GenerateResume(ctx context.Context, req Request, withRecommendations bool) (ResumeResult, error) {
	req = req.sanitized()

	content, err := w.generate(ctx, resumeSystemPrompt, buildResumePrompt(req))
	if err != nil {
		return ResumeResult{}, fmt.Errorf("failed to generate resume: %w", err)
	}

	result := ResumeResult{Content: content}
	if withRecommendations {
		recs, err := w.GenerateRecommendations(ctx, req)
		if err != nil {
			return ResumeResult{}, err
		}
		result.Recommendations = recs
	}

	return result, nil
}

// GenerateCoverLetter creates a cover letter tailored to the job
func (w *Writer) GenerateCoverLetter(ctx context.Context, req Request) (string, error) {
	req = req.sanitized()

	content, err := w.generate(ctx, coverLetterSystemPrompt, buildCoverLetterPrompt(req))
	if err != nil {
		return "", fmt.Errorf("failed to generate cover letter: %w", err)
	}
	return content, nil
}

// GenerateRecommendations lists concrete ways to improve the resume for the job
func (w *Writer) GenerateRecommendations(ctx context.Context, req Request) (string, error) {
	req = req.sanitized()

	content, err := w.generate(ctx, "", buildRecommendationsPrompt(req))
	if err != nil {
		return "", fmt.Errorf("failed to generate recommendations: %w", err)
	}
	return content, nil
}

// AnalyzeJobDescription extracts the key requirements of a job description
func (w *Writer) AnalyzeJobDescription(ctx context.Context, jobDescription string) (JobAnalysis, error) {
	response, err := w.generate(ctx, "", buildAnalysisPrompt(sanitizeUTF8(jobDescription)))
	if err != nil {
		return JobAnalysis{}, fmt.Errorf("failed to analyze job description: %w", err)
	}

	analysis, err := parseAnalysis(response)
	if err != nil {
		// Keep the free-form answer when the model ignored the JSON format
		return JobAnalysis{Raw: response}, nil
	}
	return analysis, nil
}

func (w *Writer) generate(ctx context.Context, system, prompt string) (string, error) {
	var (
		out string
		err error
	)
	if system != "" {
		out, err = w.llmClient.GenerateWithSystem(ctx, system, prompt)
	} else {
		out, err = w.llmClient.GenerateContent(ctx, prompt)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get LLM response: %w", err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// parseAnalysis extracts the analysis from the LLM response
func parseAnalysis(response string) (JobAnalysis, error) {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx < startIdx {
		return JobAnalysis{}, fmt.Errorf("no JSON found in response")
	}

	var analysis JobAnalysis
	if err := json.Unmarshal([]byte(response[startIdx:endIdx+1]), &analysis); err != nil {
		return JobAnalysis{}, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return analysis, nil
}

func (r Request) sanitized() Request {
	return Request{
		JobDescription:         sanitizeUTF8(r.JobDescription),
		ResumeContent:          sanitizeUTF8(r.ResumeContent),
		AdditionalInstructions: sanitizeUTF8(r.AdditionalInstructions),
	}
}

// sanitizeUTF8 replaces invalid UTF-8 sequences so the text can be sent to the API
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "�")
}

// truncateRunes cuts s to at most n runes, marking the cut with an ellipsis
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
