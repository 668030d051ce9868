// Package scoring grades interview transcripts against a rubric with a hosted language model.
package scoring

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rbright/parley/internal/interview"
	"github.com/rbright/parley/internal/rubric"
)

const (
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
)

// Service evaluates transcripts and answers follow-up questions about them.
type Service interface {
	Evaluate(ctx context.Context, transcript string, interviewType string) (interview.Evaluation, error)
	Answer(ctx context.Context, q Question) (string, error)
}

// completer is one model backend: prompt in, reply text out.
type completer interface {
	complete(ctx context.Context, prompt string, temperature float64, jsonReply bool) (string, error)
}

// grader shares prompt construction and reply decoding across backends.
type grader struct {
	backend completer
	rubrics rubric.Set
}

func newGrader(backend completer, rubrics rubric.Set) grader {
	if rubrics == nil {
		rubrics, _ = rubric.Builtin()
	}
	return grader{backend: backend, rubrics: rubrics}
}

func (g grader) evaluate(ctx context.Context, transcript string, interviewType string) (interview.Evaluation, error) {
	r, err := g.rubrics.Lookup(interviewType)
	if err != nil {
		return interview.Evaluation{}, &interview.ServiceError{Op: "evaluate", Err: err}
	}
	if strings.TrimSpace(transcript) == "" {
		return interview.Evaluation{}, &interview.ServiceError{Op: "evaluate", Err: fmt.Errorf("transcript is empty")}
	}

	reply, err := g.backend.complete(ctx, EvaluationPrompt(r, transcript), evaluateTemperature, true)
	if err != nil {
		return interview.Evaluation{}, &interview.ServiceError{Op: "evaluate", Err: err}
	}
	evaluation, err := decodeEvaluation(reply)
	if err != nil {
		return interview.Evaluation{}, &interview.ServiceError{Op: "decode evaluation", Err: err}
	}
	return evaluation, nil
}

func (g grader) answer(ctx context.Context, q Question) (string, error) {
	if strings.TrimSpace(q.Question) == "" {
		return "", &interview.ServiceError{Op: "answer", Err: fmt.Errorf("question is empty")}
	}
	reply, err := g.backend.complete(ctx, AnswerPrompt(q), answerTemperature, false)
	if err != nil {
		return "", &interview.ServiceError{Op: "answer", Err: err}
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", &interview.ServiceError{Op: "answer", Err: errEmptyReply}
	}
	return reply, nil
}

// Options selects and configures a backend.
type Options struct {
	Backend string
	Model   string
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Rubrics rubric.Set
}

// Open builds the configured backend.
func Open(ctx context.Context, opts Options) (Service, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendOpenAI:
		o, err := NewOpenAI(OpenAIConfig{
			BaseURL: opts.BaseURL,
			APIKey:  opts.APIKey,
			Model:   opts.Model,
			Timeout: opts.Timeout,
			Rubrics: opts.Rubrics,
		})
		if err != nil {
			return nil, err
		}
		return o, nil
	case BackendGemini:
		g, err := NewGemini(ctx, GeminiConfig{
			BaseURL: opts.BaseURL,
			APIKey:  opts.APIKey,
			Model:   opts.Model,
			Rubrics: opts.Rubrics,
		})
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown scoring backend %q", opts.Backend)
	}
}
