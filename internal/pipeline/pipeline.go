// Package pipeline sequences scoring and persistence for one finished interview.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rbright/parley/internal/interview"
	"github.com/rbright/parley/internal/rubric"
)

const (
	DefaultScoreTimeout   = 90 * time.Second
	DefaultPersistTimeout = 10 * time.Second
)

// Scorer is the Scoring Service.
type Scorer interface {
	Evaluate(ctx context.Context, transcript string, interviewType string) (interview.Evaluation, error)
}

// Creator is the Interview Store write side.
type Creator interface {
	Create(ctx context.Context, draft interview.Draft) (string, error)
}

// Input is the immutable session snapshot the pipeline consumes.
type Input struct {
	Transcript    string
	Prompt        string
	InterviewType string
}

// Scored carries a validated evaluation. Only Score produces one.
type Scored struct {
	input      Input
	evaluation interview.Evaluation
}

// Evaluation returns the validated scores.
func (s Scored) Evaluation() interview.Evaluation {
	return s.evaluation
}

// Draft assembles the record to persist.
func (s Scored) Draft() interview.Draft {
	return interview.NewDraft(s.input.Transcript, s.input.Prompt, s.input.InterviewType, s.evaluation)
}

// ScoreResult is the outcome of the score stage.
type ScoreResult struct {
	scored   *Scored
	Err      error
	Duration time.Duration
}

// Scored returns the validated evaluation when scoring succeeded.
func (r ScoreResult) Scored() (Scored, bool) {
	if r.scored == nil {
		return Scored{}, false
	}
	return *r.scored, true
}

// PersistResult is the outcome of the persist stage.
type PersistResult struct {
	ID       string
	Err      error
	Duration time.Duration
}

// Result is the outcome of one full Run.
type Result struct {
	ID         string
	Evaluation interview.Evaluation
	Err        error
}

// Code is the navigation error code for a failed run, or "" on success.
func (r Result) Code() interview.ErrorCode {
	if r.Err == nil {
		return ""
	}
	return interview.CodeProcessingFailed
}

// Timeouts bounds each stage. Zero values take the defaults.
type Timeouts struct {
	Score   time.Duration
	Persist time.Duration
}

// Pipeline runs score then persist, strictly sequentially, without retries.
type Pipeline struct {
	logger   *slog.Logger
	scorer   Scorer
	store    Creator
	rubrics  rubric.Set
	timeouts Timeouts
}

// New constructs a pipeline. A nil rubric set falls back to the embedded rubrics.
func New(logger *slog.Logger, scorer Scorer, store Creator, rubrics rubric.Set, timeouts Timeouts) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if rubrics == nil {
		rubrics, _ = rubric.Builtin()
	}
	if timeouts.Score <= 0 {
		timeouts.Score = DefaultScoreTimeout
	}
	if timeouts.Persist <= 0 {
		timeouts.Persist = DefaultPersistTimeout
	}
	return &Pipeline{logger: logger, scorer: scorer, store: store, rubrics: rubrics, timeouts: timeouts}
}

// Score evaluates the transcript and checks the evaluation against the rubric.
func (p *Pipeline) Score(ctx context.Context, in Input) ScoreResult {
	started := time.Now()
	fail := func(err error) ScoreResult {
		return ScoreResult{
			Err:      &interview.PipelineError{Stage: interview.StageScore, Err: err},
			Duration: time.Since(started),
		}
	}

	if p.scorer == nil {
		return fail(errors.New("scoring service not configured"))
	}
	rb, err := p.rubrics.Lookup(in.InterviewType)
	if err != nil {
		return fail(err)
	}

	stageCtx, cancel := context.WithTimeout(ctx, p.timeouts.Score)
	defer cancel()

	evaluation, err := p.scorer.Evaluate(stageCtx, in.Transcript, in.InterviewType)
	if err != nil {
		return fail(err)
	}
	if err := rubric.ValidateEvaluation(rb, evaluation); err != nil {
		return fail(err)
	}

	return ScoreResult{
		scored:   &Scored{input: in, evaluation: evaluation},
		Duration: time.Since(started),
	}
}

// Persist stores a scored interview and returns its identifier.
func (p *Pipeline) Persist(ctx context.Context, scored Scored) PersistResult {
	started := time.Now()
	fail := func(err error) PersistResult {
		return PersistResult{
			Err:      &interview.PipelineError{Stage: interview.StagePersist, Err: err},
			Duration: time.Since(started),
		}
	}

	if p.store == nil {
		return fail(errors.New("interview store not configured"))
	}

	stageCtx, cancel := context.WithTimeout(ctx, p.timeouts.Persist)
	defer cancel()

	id, err := p.store.Create(stageCtx, scored.Draft())
	if err != nil {
		return fail(err)
	}
	if id == "" {
		return fail(errors.New("interview store returned an empty id"))
	}
	return PersistResult{ID: id, Duration: time.Since(started)}
}

// Run executes score then persist once.
func (p *Pipeline) Run(ctx context.Context, in Input) Result {
	logger := p.logger.With("interview_type", in.InterviewType)

	scoreResult := p.Score(ctx, in)
	scored, ok := scoreResult.Scored()
	if !ok {
		logger.Error("pipeline stage failed", "stage", string(interview.StageScore),
			"duration_ms", scoreResult.Duration.Milliseconds(), "error", scoreResult.Err.Error())
		return Result{Err: scoreResult.Err}
	}
	logger.Info("pipeline stage complete", "stage", string(interview.StageScore),
		"duration_ms", scoreResult.Duration.Milliseconds())

	persistResult := p.Persist(ctx, scored)
	if persistResult.Err != nil {
		logger.Error("pipeline stage failed", "stage", string(interview.StagePersist),
			"duration_ms", persistResult.Duration.Milliseconds(), "error", persistResult.Err.Error())
		return Result{Evaluation: scored.Evaluation(), Err: persistResult.Err}
	}
	logger.Info("pipeline stage complete", "stage", string(interview.StagePersist),
		"duration_ms", persistResult.Duration.Milliseconds(), "interview_id", persistResult.ID)

	return Result{ID: persistResult.ID, Evaluation: scored.Evaluation()}
}

// Evaluate runs the pipeline and returns the stored identifier.
func (p *Pipeline) Evaluate(ctx context.Context, transcript, prompt, interviewType string) (string, error) {
	result := p.Run(ctx, Input{Transcript: transcript, Prompt: prompt, InterviewType: interviewType})
	return result.ID, result.Err
}
