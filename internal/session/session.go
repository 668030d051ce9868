// Package session coordinates the interview lifecycle, transcript capture, and evaluation handoff.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/parley/internal/fsm"
	"github.com/rbright/parley/internal/interview"
	"github.com/rbright/parley/internal/ipc"
	"github.com/rbright/parley/internal/results"
)

type action int

const (
	actionStop action = iota + 1
)

const (
	endSessionTimeout    = 2 * time.Second
	indicatorHideTimeout = 800 * time.Millisecond
)

// Outcome is the complete lifecycle output returned by one Run invocation.
type Outcome struct {
	Session    Snapshot
	Target     results.Target
	Err        error
	Cancelled  bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// Controller runs one interview session and reduces provider events into session state.
type Controller struct {
	logger     *slog.Logger
	agent      Agent
	provider   Provider
	microphone Capability
	evaluator  Evaluator
	indicator  Indicator

	mu      sync.RWMutex
	session *Session

	actions chan action
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(
	logger *slog.Logger,
	agent Agent,
	provider Provider,
	microphone Capability,
	evaluator Evaluator,
	indicator Indicator,
) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if microphone == nil {
		microphone = CapabilityFunc(func(context.Context) error { return nil })
	}
	if evaluator == nil {
		evaluator = missingEvaluator{}
	}
	if indicator == nil {
		indicator = noopIndicator{}
	}

	return &Controller{
		logger:     logger,
		agent:      agent,
		provider:   provider,
		microphone: microphone,
		evaluator:  evaluator,
		indicator:  indicator,
		actions:    make(chan action, 1),
	}
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return fsm.StateIdle
	}
	return c.session.state
}

// Snapshot returns a copy of the active session, if any.
func (c *Controller) Snapshot() (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return Snapshot{}, false
	}
	return c.session.snapshot(), true
}

// transition applies one FSM event to the session state. Callers hold c.mu.
func (c *Controller) transition(s *Session, event fsm.Event) error {
	next, err := fsm.Transition(s.state, event)
	if err != nil {
		return err
	}
	s.state = next
	if next.Terminal() {
		s.EndedAt = time.Now()
	}
	return nil
}

func (c *Controller) fail(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.transition(s, fsm.EventFail)
}

// Run executes exactly one session from capability check to result target.
func (c *Controller) Run(ctx context.Context) Outcome {
	s := newSession(c.agent, time.Now())
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	logger := c.logger.With("session_id", s.ID, "agent_id", s.Agent.ID, "interview_type", s.Agent.InterviewType)
	outcome := Outcome{StartedAt: s.StartedAt}
	finish := func() Outcome {
		c.mu.RLock()
		outcome.Session = s.snapshot()
		c.mu.RUnlock()
		outcome.FinishedAt = time.Now()
		return outcome
	}

	if c.provider == nil {
		outcome.Err = &interview.SessionError{Op: "start", Err: errors.New("voice provider not configured")}
		outcome.Target = failureTarget(outcome.Err)
		return finish()
	}

	if err := c.microphone.Check(ctx); err != nil {
		logger.Error("microphone capability check failed", "error", err.Error())
		c.indicator.ShowError(ctx, "Microphone access is required for the interview")
		outcome.Err = &interview.CapabilityError{Capability: "microphone", Err: err}
		outcome.Target = failureTarget(outcome.Err)
		return finish()
	}

	c.mu.Lock()
	err := c.transition(s, fsm.EventStart)
	c.mu.Unlock()
	if err != nil {
		outcome.Err = err
		return finish()
	}

	c.indicator.ShowConnecting(ctx)
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), indicatorHideTimeout)
		defer cancel()
		c.indicator.Hide(cleanupCtx)
	}()

	events, err := c.provider.StartSession(ctx, s.Agent.ID)
	if err != nil {
		logger.Error("voice session start failed", "error", err.Error())
		c.fail(s)
		c.indicator.ShowError(context.Background(), "Unable to start the interview")
		outcome.Err = &interview.SessionError{Op: "start", Err: err}
		outcome.Target = failureTarget(outcome.Err)
		return finish()
	}
	logger.Info("voice session started")

	for {
		select {
		case <-ctx.Done():
			c.endSession(logger)
			c.fail(s)
			logger.Info("session cancelled", "state", string(s.state))
			outcome.Err = ctx.Err()
			outcome.Cancelled = true
			return finish()
		case a := <-c.actions:
			if a == actionStop {
				logger.Info("stop requested", "state", string(c.State()))
				c.endSession(logger)
			}
		case event, ok := <-events:
			if !ok {
				event = ErrorEvent{Err: ErrProviderClosed}
				events = nil
			}
			terminal, show, cause := c.apply(logger, s, event)
			if show != nil {
				show(ctx)
			}
			if !terminal {
				continue
			}
			if cause != nil {
				c.endSession(logger)
				c.indicator.ShowError(context.Background(), "An error occurred during the interview")
				outcome.Err = cause
				outcome.Target = failureTarget(cause)
				return finish()
			}
			return c.evaluate(ctx, logger, s, &outcome, finish)
		}
	}
}

// apply reduces one provider event under c.mu. It reports whether the session reached its
// terminal state, an indicator update to run once the lock is released, and the cause for
// provider failures.
func (c *Controller) apply(logger *slog.Logger, s *Session, event Event) (terminal bool, show func(context.Context), cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev := event.(type) {
	case ConnectEvent:
		if err := c.transition(s, fsm.EventConnect); err != nil {
			logger.Warn("connect ignored", "state", string(s.state), "error", err.Error())
			return false, nil, nil
		}
		s.ConnectedAt = time.Now()
		logger.Info("voice session connected")
		return false, c.indicator.ShowConnected, nil
	case MessageEvent:
		if s.state != fsm.StateConnected {
			logger.Warn("message dropped outside connected session", "state", string(s.state), "speaker", string(ev.Turn.Speaker))
			return false, nil, nil
		}
		s.turns.Append(ev.Turn)
		logger.Debug("turn appended", "speaker", string(ev.Turn.Speaker), "turns", s.turns.Len())
		return false, nil, nil
	case ModeEvent:
		if s.speaking == ev.Speaking {
			return false, nil, nil
		}
		s.speaking = ev.Speaking
		if s.state != fsm.StateConnected {
			return false, nil, nil
		}
		speaking := ev.Speaking
		return false, func(ctx context.Context) { c.indicator.ShowSpeaking(ctx, speaking) }, nil
	case DisconnectEvent:
		if s.triggered {
			logger.Warn("duplicate disconnect ignored")
			return false, nil, nil
		}
		if err := c.transition(s, fsm.EventDisconnect); err != nil {
			logger.Warn("disconnect ignored", "state", string(s.state), "error", err.Error())
			return false, nil, nil
		}
		s.triggered = true
		logger.Info("voice session disconnected", "reason", ev.Reason, "turns", s.turns.Len())
		return true, nil, nil
	case ErrorEvent:
		if s.triggered {
			logger.Warn("provider error after session end ignored", "error", errString(ev.Err))
			return false, nil, nil
		}
		_ = c.transition(s, fsm.EventFail)
		s.triggered = true
		logger.Error("voice session failed", "error", errString(ev.Err))
		return true, nil, &interview.SessionError{Op: "stream", Err: ev.Err}
	default:
		logger.Warn("unknown provider event ignored", "event", fmt.Sprintf("%T", event))
		return false, nil, nil
	}
}

// evaluate runs the once-per-session pipeline handoff after a terminal disconnect.
func (c *Controller) evaluate(
	ctx context.Context,
	logger *slog.Logger,
	s *Session,
	outcome *Outcome,
	finish func() Outcome,
) Outcome {
	c.mu.RLock()
	snap := s.snapshot()
	c.mu.RUnlock()

	if !snap.Complete() {
		err := &interview.DataIncompleteError{
			MissingTranscript: snap.Transcript == "",
			MissingPrompt:     snap.Prompt == "",
		}
		logger.Warn("interview data incomplete", "error", err.Error())
		c.indicator.ShowError(context.Background(), "The interview data is incomplete")
		outcome.Err = err
		outcome.Target = failureTarget(err)
		return finish()
	}

	c.indicator.ShowEvaluating(ctx)
	started := time.Now()
	id, err := c.evaluator.Evaluate(ctx, snap)
	if err != nil {
		logger.Error("interview evaluation failed", "error", err.Error(), "duration_ms", time.Since(started).Milliseconds())
		c.indicator.ShowError(context.Background(), "Failed to process the interview")
		var pipeline *interview.PipelineError
		if !errors.As(err, &pipeline) {
			err = &interview.PipelineError{Stage: interview.StageScore, Err: err}
		}
		outcome.Err = err
		outcome.Target = failureTarget(err)
		return finish()
	}

	logger.Info("interview evaluated", "interview_id", id, "duration_ms", time.Since(started).Milliseconds())
	outcome.Target = results.IDTarget(id)
	return finish()
}

// endSession asks the provider to close best-effort.
func (c *Controller) endSession(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), endSessionTimeout)
	defer cancel()
	if err := c.provider.EndSession(ctx); err != nil {
		logger.Warn("end voice session failed", "error", err.Error())
	}
}

// Handle serves IPC commands for the active interview.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return c.status()
	case ipc.CommandStop:
		return c.requestStop()
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (c *Controller) status() ipc.Response {
	snap, ok := c.Snapshot()
	if !ok {
		return ipc.Response{OK: true, State: string(fsm.StateIdle), Message: "status"}
	}

	resp := ipc.Response{
		OK:            true,
		State:         string(snap.State),
		SessionID:     snap.ID,
		InterviewType: snap.InterviewType,
		Speaking:      snap.Speaking,
		Turns:         snap.Turns,
		Message:       "status",
	}
	if snap.State == fsm.StateConnected && !snap.ConnectedAt.IsZero() {
		resp.ElapsedMS = time.Since(snap.ConnectedAt).Milliseconds()
	}
	return resp
}

// requestStop enqueues an end-session request; the state moves when the provider disconnects.
func (c *Controller) requestStop() ipc.Response {
	state := c.State()
	if !state.Live() {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot stop from state %s", state)}
	}

	select {
	case c.actions <- actionStop:
		return ipc.Response{OK: true, State: string(state), Message: "stop requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "stop already requested"}
	}
}

// failureTarget maps a session failure to its results target; failures without a code
// (capability checks) yield the zero target.
func failureTarget(err error) results.Target {
	code := interview.CodeFor(err)
	if code == "" {
		return results.Target{}
	}
	return results.ErrorTarget(code)
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
