package session

import (
	"context"
	"errors"
)

// ErrProviderClosed indicates the provider event stream ended without a disconnect.
var ErrProviderClosed = errors.New("voice provider closed the event stream without disconnecting")

// Provider is the real-time voice session backend.
type Provider interface {
	StartSession(ctx context.Context, agentID string) (<-chan Event, error)
	EndSession(ctx context.Context) error
}

// Capability checks a device prerequisite before a session starts.
type Capability interface {
	Check(context.Context) error
}

// CapabilityFunc adapts a function to the Capability interface.
type CapabilityFunc func(context.Context) error

func (f CapabilityFunc) Check(ctx context.Context) error {
	return f(ctx)
}

// Evaluator scores and persists a finished interview, returning the stored identifier.
type Evaluator interface {
	Evaluate(context.Context, Snapshot) (string, error)
}

// EvaluateFunc adapts a function to the Evaluator interface.
type EvaluateFunc func(context.Context, Snapshot) (string, error)

func (f EvaluateFunc) Evaluate(ctx context.Context, snap Snapshot) (string, error) {
	return f(ctx, snap)
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	ShowConnecting(context.Context)
	ShowConnected(context.Context)
	ShowSpeaking(context.Context, bool)
	ShowEvaluating(context.Context)
	ShowError(context.Context, string)
	Hide(context.Context)
}

// noopIndicator preserves session flow when no indicator is wired.
type noopIndicator struct{}

func (noopIndicator) ShowConnecting(context.Context)     {}
func (noopIndicator) ShowConnected(context.Context)      {}
func (noopIndicator) ShowSpeaking(context.Context, bool) {}
func (noopIndicator) ShowEvaluating(context.Context)     {}
func (noopIndicator) ShowError(context.Context, string)  {}
func (noopIndicator) Hide(context.Context)               {}

var errEvaluatorMissing = errors.New("evaluation pipeline not configured")

type missingEvaluator struct{}

func (missingEvaluator) Evaluate(context.Context, Snapshot) (string, error) {
	return "", errEvaluatorMissing
}
