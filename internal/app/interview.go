package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rbright/parley/internal/audio"
	"github.com/rbright/parley/internal/config"
	"github.com/rbright/parley/internal/indicator"
	"github.com/rbright/parley/internal/ipc"
	"github.com/rbright/parley/internal/logging"
	"github.com/rbright/parley/internal/output"
	"github.com/rbright/parley/internal/results"
	"github.com/rbright/parley/internal/rubric"
	"github.com/rbright/parley/internal/session"
	"github.com/rbright/parley/internal/voice"
)

const resolveTimeout = 10 * time.Second

func (r Runner) commandInterview(
	ctx context.Context,
	cfg config.Config,
	agentID string,
	logRuntime logging.Runtime,
	logger *slog.Logger,
) int {
	if agentID == "" {
		agentID = cfg.DefaultAgent
	}
	interviewType, err := rubric.ResolveAgent(cfg.AgentTypes(), agentID)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	sock, err := ipc.Claim(ctx, socketPath)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: an interview is already running; use `parley stop` to end it")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = sock.Close() }()

	svc, err := openServices(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = svc.Close() }()

	pipe := newPipeline(cfg, svc, logger)
	evaluator := session.EvaluateFunc(func(ctx context.Context, snap session.Snapshot) (string, error) {
		return pipe.Evaluate(ctx, snap.Transcript, snap.Prompt, snap.InterviewType)
	})

	mic := audio.NewMicrophone(audio.Preference{Input: cfg.Audio.Input, Fallback: cfg.Audio.Fallback}, logger)
	var microphone session.Capability = mic
	if r.microphone != nil {
		microphone = r.microphone
	}

	provider := r.provider
	if provider == nil {
		elevenlabs, closeDump, err := newVoiceProvider(cfg, mic, filepath.Dir(logRuntime.Path), logger)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		defer func() { _ = closeDump() }()
		provider = elevenlabs
	}

	var ind session.Indicator
	if cfg.Indicator.Enable {
		ind = indicator.New(cfg.Indicator, logger)
	}

	controller := session.NewController(
		logger,
		session.Agent{ID: agentID, InterviewType: interviewType},
		provider,
		microphone,
		evaluator,
		ind,
	)

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, sock, controller)
	}()

	fmt.Fprintf(r.Stdout, "starting %s interview; run `parley stop` to finish\n", interviewType)
	outcome := controller.Run(ctx)
	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	logOutcome(logger, outcome)

	if outcome.Cancelled {
		fmt.Fprintln(r.Stdout, "cancelled")
		return 0
	}
	if outcome.Target.IsZero() {
		fmt.Fprintf(r.Stderr, "error: %v\n", outcome.Err)
		return 1
	}

	resolveCtx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()
	view := results.NewResolver(logger, svc.store, nil).Resolve(resolveCtx, outcome.Target)
	fmt.Fprint(r.Stdout, view.String())

	link, err := output.NewHandoff(cfg, logger).Deliver(resolveCtx, outcome.Target)
	if link != "" {
		fmt.Fprintf(r.Stdout, "\nresults: %s\n", link)
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "warning: %v\n", err)
	}

	if !view.OK() {
		return 1
	}
	return 0
}

// newVoiceProvider builds the ElevenLabs provider. The returned closer releases the optional
// debug dump file.
func newVoiceProvider(
	cfg config.Config,
	mic *audio.Microphone,
	stateDir string,
	logger *slog.Logger,
) (*voice.ElevenLabs, func() error, error) {
	opts := voice.Options{
		APIKey:      cfg.Secrets.ElevenLabsKey,
		APIBaseURL:  cfg.Voice.APIBaseURL,
		SocketURL:   cfg.Voice.SocketURL,
		DialTimeout: cfg.Voice.DialTimeout,
	}
	if cfg.Voice.Uplink {
		opts.OpenAudio = func(ctx context.Context) (voice.AudioSource, error) {
			capture, err := mic.Open(ctx)
			if err != nil {
				return nil, err
			}
			return capture, nil
		}
	}

	closeDump := func() error { return nil }
	if cfg.Voice.DebugDump {
		dump, err := openDebugDump(stateDir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("voice debug dump enabled", "path", dump.Name())
		opts.DebugSink = dump
		closeDump = dump.Close
	}

	return voice.NewElevenLabs(opts, logger), closeDump, nil
}

func openDebugDump(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create voice debug dir: %w", err)
	}
	name := fmt.Sprintf("voice-%s.jsonl", time.Now().UTC().Format("20060102T150405Z"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open voice debug dump: %w", err)
	}
	return f, nil
}

func logOutcome(logger *slog.Logger, outcome session.Outcome) {
	if logger == nil {
		return
	}
	snap := outcome.Session
	fields := []any{
		"session_id", snap.ID,
		"state", string(snap.State),
		"cancelled", outcome.Cancelled,
		"started_at", outcome.StartedAt.Format(time.RFC3339Nano),
		"finished_at", outcome.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", outcome.FinishedAt.Sub(outcome.StartedAt).Milliseconds(),
		"interview_type", snap.InterviewType,
		"turns", snap.Turns,
		"transcript_length", len(snap.Transcript),
		"target", outcome.Target.Query().Encode(),
	}

	if outcome.Err != nil {
		logger.Error("session failed", append(fields, "error", outcome.Err.Error())...)
		return
	}
	logger.Info("session complete", fields...)
}
