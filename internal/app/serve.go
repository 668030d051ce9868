package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/rbright/parley/internal/config"
	"github.com/rbright/parley/internal/httpapi"
	"github.com/rbright/parley/internal/logging"
	"github.com/rbright/parley/internal/results"
	"github.com/rbright/parley/internal/scoringrpc"
)

// commandServe runs the HTTP API and the gRPC scoring service until ctx ends.
func (r Runner) commandServe(ctx context.Context, cfg config.Config, logRuntime logging.Runtime, logger *slog.Logger) int {
	svc, err := openServices(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = svc.Close() }()

	deps := httpapi.Deps{
		Scorer:     svc.scorer,
		Store:      svc.store,
		Resolver:   results.NewResolver(logger, svc.store, nil),
		Logger:     logger,
		AccessLog:  logRuntime.Writer,
		RateLimit:  cfg.Server.RateLimit,
		RateWindow: cfg.Server.RateWindow,
	}
	if svc.answerer != nil {
		deps.Answerer = svc.answerer
	}
	app := httpapi.New(deps)

	fmt.Fprintf(r.Stdout, "http api listening on %s\n", cfg.Server.HTTPAddr)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return httpapi.Serve(groupCtx, app, cfg.Server.HTTPAddr)
	})
	if cfg.Server.GRPCAddr != "" {
		fmt.Fprintf(r.Stdout, "grpc scoring listening on %s\n", cfg.Server.GRPCAddr)
		group.Go(func() error {
			return scoringrpc.Serve(groupCtx, cfg.Server.GRPCAddr, svc.scorer, logger)
		})
	}

	if err := group.Wait(); err != nil {
		logger.Error("serve failed", "error", err.Error())
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	logger.Info("serve stopped")
	return 0
}
