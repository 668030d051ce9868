// Package scoringrpc exposes the scoring service over gRPC with structpb messages.
package scoringrpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rbright/parley/internal/interview"
)

const (
	ServiceName    = "parley.scoring.v1.Scoring"
	evaluateMethod = "/" + ServiceName + "/Evaluate"
)

// Scorer is the backend the server delegates to.
type Scorer interface {
	Evaluate(ctx context.Context, transcript string, interviewType string) (interview.Evaluation, error)
}

type scoringServer interface {
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*scoringServer)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "Evaluate",
		Handler:    evaluateHandler,
	}},
	Metadata: "parley/scoring/v1/scoring.proto",
}

func evaluateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(scoringServer).Evaluate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: evaluateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(scoringServer).Evaluate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Server adapts a Scorer to the gRPC service.
type Server struct {
	scorer Scorer
	logger *slog.Logger
}

// Register installs the scoring and health services on s.
func Register(s *grpc.Server, scorer Scorer, logger *slog.Logger) *health.Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s.RegisterService(&serviceDesc, &Server{scorer: scorer, logger: logger.With("component", "scoringrpc")})

	healthServer := health.NewServer()
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, healthServer)
	return healthServer
}

func (s *Server) Evaluate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	transcript, interviewType, err := decodeRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	started := time.Now()
	evaluation, err := s.scorer.Evaluate(ctx, transcript, interviewType)
	if err != nil {
		s.logger.Error("rpc evaluate failed", "interview_type", interviewType,
			"duration_ms", time.Since(started).Milliseconds(), "error", err.Error())
		if errors.Is(err, interview.ErrUnknownInterviewType) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, status.FromContextError(ctxErr).Err()
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	s.logger.Info("rpc evaluate complete", "interview_type", interviewType,
		"duration_ms", time.Since(started).Milliseconds())

	out, err := encodeEvaluation(evaluation)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode evaluation: %v", err))
	}
	return out, nil
}

// Serve listens on addr until ctx ends.
func Serve(ctx context.Context, addr string, scorer Scorer, logger *slog.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen grpc %q: %w", addr, err)
	}
	return ServeListener(ctx, lis, scorer, logger)
}

// ServeListener serves on an existing listener until ctx ends.
func ServeListener(ctx context.Context, lis net.Listener, scorer Scorer, logger *slog.Logger) error {
	s := grpc.NewServer()
	healthServer := Register(s, scorer, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		healthServer.Shutdown()
		s.GracefulStop()
		<-errCh
		return nil
	}
}
