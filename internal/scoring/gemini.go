package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/rbright/parley/internal/interview"
	"github.com/rbright/parley/internal/rubric"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiConfig configures the Gemini API backend.
type GeminiConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Rubrics rubric.Set
}

// Gemini scores transcripts through Models.GenerateContent.
type Gemini struct {
	client *genai.Client
	model  string
	grader grader
}

// NewGemini builds the backend. An API key is required.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("GEMINI_API_KEY not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	g := &Gemini{client: client, model: cfg.Model}
	g.grader = newGrader(g, cfg.Rubrics)
	return g, nil
}

// Evaluate scores one transcript.
func (g *Gemini) Evaluate(ctx context.Context, transcript string, interviewType string) (interview.Evaluation, error) {
	return g.grader.evaluate(ctx, transcript, interviewType)
}

// Answer replies to a follow-up question.
func (g *Gemini) Answer(ctx context.Context, q Question) (string, error) {
	return g.grader.answer(ctx, q)
}

func (g *Gemini) complete(ctx context.Context, prompt string, temperature float64, jsonReply bool) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(temperature)),
	}
	if jsonReply {
		config.ResponseMIMEType = "application/json"
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if result == nil || len(result.Candidates) == 0 {
		return "", errors.New("no candidates in response")
	}
	if result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no parts in candidate content")
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", errEmptyReply
	}
	return text, nil
}
