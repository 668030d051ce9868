package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/rbright/parley/internal/interview"
	"github.com/rbright/parley/internal/rubric"
	"github.com/rbright/parley/internal/version"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-4"
)

// OpenAIConfig configures an OpenAI-compatible chat completions backend.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	Rubrics rubric.Set
}

// OpenAI scores transcripts through /chat/completions.
type OpenAI struct {
	client *resty.Client
	model  string
	grader grader
}

// NewOpenAI builds the backend. An API key is required.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("OPENAI_API_KEY not set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", version.UserAgent()).
		SetTimeout(cfg.Timeout)

	o := &OpenAI{client: client, model: cfg.Model}
	o.grader = newGrader(o, cfg.Rubrics)
	return o, nil
}

// Evaluate scores one transcript.
func (o *OpenAI) Evaluate(ctx context.Context, transcript string, interviewType string) (interview.Evaluation, error) {
	return o.grader.evaluate(ctx, transcript, interviewType)
}

// Answer replies to a follow-up question.
func (o *OpenAI) Answer(ctx context.Context, q Question) (string, error) {
	return o.grader.answer(ctx, q)
}

func (o *OpenAI) complete(ctx context.Context, prompt string, temperature float64, _ bool) (string, error) {
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"model": o.model,
			"messages": []map[string]string{
				{"role": "user", "content": prompt},
			},
			"temperature": temperature,
		}).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	if resp.IsError() {
		message := gjson.Get(resp.String(), "error.message").String()
		if message == "" {
			message = strings.TrimSpace(resp.String())
		}
		return "", fmt.Errorf("chat completion returned %d: %s", resp.StatusCode(), message)
	}

	content := gjson.Get(resp.String(), "choices.0.message.content").String()
	if strings.TrimSpace(content) == "" {
		return "", errEmptyReply
	}
	return content, nil
}
