package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rbright/parley/internal/cli"
	"github.com/rbright/parley/internal/config"
	"github.com/rbright/parley/internal/interview"
	"github.com/rbright/parley/internal/results"
	"github.com/rbright/parley/internal/scoring"
)

// commandResults renders a results view for --id or --error.
func (r Runner) commandResults(ctx context.Context, cfg config.Config, parsed cli.Parsed, logger *slog.Logger) int {
	target := results.IDTarget(parsed.InterviewID)
	if parsed.ErrorCode != "" {
		target = results.ErrorTarget(interview.ErrorCode(parsed.ErrorCode))
	}

	var reader results.Reader
	if target.ID != "" {
		s := &services{}
		if err := s.openStore(ctx, cfg, logger); err != nil {
			fmt.Fprintf(r.Stderr, "error: interview store %q: %v\n", cfg.Store.Kind, err)
			return 1
		}
		defer func() { _ = s.Close() }()
		reader = s.store
	}

	view := results.NewResolver(logger, reader, nil).Resolve(ctx, target)
	fmt.Fprint(r.Stdout, view.String())
	if !view.OK() {
		return 1
	}
	return 0
}

// commandAsk answers one follow-up question about a stored interview.
func (r Runner) commandAsk(ctx context.Context, cfg config.Config, parsed cli.Parsed, logger *slog.Logger) int {
	svc, err := openServices(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = svc.Close() }()

	if svc.answerer == nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", errAnswerUnsupported)
		return 1
	}

	record, err := svc.store.Read(ctx, parsed.InterviewID)
	if err != nil {
		if errors.Is(err, interview.ErrNotFound) {
			fmt.Fprintln(r.Stderr, "error: "+results.MessageNotFound)
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	answer, err := svc.answerer.Answer(ctx, scoring.Question{
		Question:   parsed.Question,
		Transcript: record.Transcript,
		Prompt:     record.Prompt,
	})
	if err != nil {
		logger.Error("follow-up question failed", "interview_id", record.ID, "error", err.Error())
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, answer)
	return 0
}
