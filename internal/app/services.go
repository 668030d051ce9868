package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rbright/parley/internal/config"
	"github.com/rbright/parley/internal/pipeline"
	"github.com/rbright/parley/internal/remote"
	"github.com/rbright/parley/internal/scoring"
	"github.com/rbright/parley/internal/scoringrpc"
	"github.com/rbright/parley/internal/store"
)

var errAnswerUnsupported = errors.New("follow-up questions need the openai, gemini, or remote scoring backend")

// answerer is the follow-up Q&A side of a scoring backend.
type answerer interface {
	Answer(ctx context.Context, q scoring.Question) (string, error)
}

// services holds the configured scoring backend and interview store.
type services struct {
	scorer   pipeline.Scorer
	answerer answerer
	store    store.Store
	closers  []func() error
}

func (s *services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openServices builds the scoring backend and store named in cfg.
func openServices(ctx context.Context, cfg config.Config, logger *slog.Logger) (*services, error) {
	s := &services{}

	if err := s.openScoring(ctx, cfg); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("scoring backend %q: %w", cfg.Scoring.Backend, err)
	}
	if err := s.openStore(ctx, cfg, logger); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("interview store %q: %w", cfg.Store.Kind, err)
	}
	return s, nil
}

func (s *services) openScoring(ctx context.Context, cfg config.Config) error {
	switch cfg.Scoring.Backend {
	case config.BackendRemote:
		client, err := remote.New(cfg.Scoring.RemoteURL, cfg.Scoring.Timeout)
		if err != nil {
			return err
		}
		s.scorer, s.answerer = client, client
		return nil
	case config.BackendGRPC:
		client, err := scoringrpc.Dial(ctx, cfg.Scoring.GRPCAddr, 0)
		if err != nil {
			return err
		}
		s.scorer = client
		s.closers = append(s.closers, client.Close)
		return nil
	default:
		key := cfg.Secrets.OpenAIKey
		if cfg.Scoring.Backend == config.BackendGemini {
			key = cfg.Secrets.GeminiKey
		}
		service, err := scoring.Open(ctx, scoring.Options{
			Backend: cfg.Scoring.Backend,
			Model:   cfg.Scoring.Model,
			BaseURL: cfg.Scoring.BaseURL,
			APIKey:  key,
			Timeout: cfg.Scoring.Timeout,
		})
		if err != nil {
			return err
		}
		s.scorer, s.answerer = service, service
		return nil
	}
}

func (s *services) openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if cfg.Store.Kind == config.StoreRemote {
		client, err := remote.New(cfg.Store.RemoteURL, cfg.Pipeline.PersistTimeout)
		if err != nil {
			return err
		}
		s.store = client
		return nil
	}

	db, err := store.Open(ctx, cfg.Store.Kind, cfg.Store.DSN, logger, nil)
	if err != nil {
		return err
	}
	s.store = db
	s.closers = append(s.closers, db.Close)
	return nil
}

// newPipeline builds the evaluation pipeline over the opened services.
func newPipeline(cfg config.Config, s *services, logger *slog.Logger) *pipeline.Pipeline {
	return pipeline.New(logger, s.scorer, s.store, nil, pipeline.Timeouts{
		Score:   cfg.Pipeline.ScoreTimeout,
		Persist: cfg.Pipeline.PersistTimeout,
	})
}
