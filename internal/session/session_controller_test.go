package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/parley/internal/fsm"
	"github.com/rbright/parley/internal/ipc"
)

func TestHandleStatusAndUnknownCommand(t *testing.T) {
	ctrl := NewController(nil, productSense, newFakeProvider(), nil, nil, &fakeIndicator{})

	status := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandStatus})
	require.True(t, status.OK)
	require.Equal(t, string(fsm.StateIdle), status.State)
	require.Empty(t, status.SessionID)

	unknown := ctrl.Handle(context.Background(), ipc.Request{Command: "definitely-unknown"})
	require.False(t, unknown.OK)
	require.Contains(t, unknown.Error, "unknown command")
}

func TestHandleStatusReportsLiveSession(t *testing.T) {
	provider := newFakeProvider()
	ctrl := NewController(nil, productSense, provider, nil, &fakeEvaluator{id: "abc"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	outcomeCh := runAsync(ctx, ctrl)

	provider.send(ConnectEvent{}, ai("Prompt"), candidate("Answer"), ModeEvent{Speaking: true})
	waitForTurns(t, ctrl, 2)
	waitForSpeaking(t, ctrl)

	status := ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandStatus})
	require.True(t, status.OK)
	require.Equal(t, string(fsm.StateConnected), status.State)
	require.NotEmpty(t, status.SessionID)
	require.Equal(t, "product-sense", status.InterviewType)
	require.True(t, status.Speaking)
	require.Equal(t, 2, status.Turns)
	require.GreaterOrEqual(t, status.ElapsedMS, int64(0))

	provider.send(DisconnectEvent{})
	outcome := awaitOutcome(t, outcomeCh)
	require.Equal(t, status.SessionID, outcome.Session.ID)
}

func TestRequestStopStateGuards(t *testing.T) {
	ctrl := NewController(nil, productSense, newFakeProvider(), nil, nil, nil)

	stopFromIdle := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandStop})
	require.False(t, stopFromIdle.OK)
	require.Contains(t, stopFromIdle.Error, "cannot stop from state idle")

	ctrl.mu.Lock()
	ctrl.session = newSession(productSense, time.Now())
	ctrl.session.state = fsm.StateDisconnected
	ctrl.mu.Unlock()

	stopFromDisconnected := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandStop})
	require.False(t, stopFromDisconnected.OK)
	require.Contains(t, stopFromDisconnected.Error, "cannot stop from state disconnected")
}

func TestRequestStopAlreadyRequested(t *testing.T) {
	ctrl := NewController(nil, productSense, newFakeProvider(), nil, nil, nil)

	ctrl.mu.Lock()
	ctrl.session = newSession(productSense, time.Now())
	ctrl.session.state = fsm.StateConnected
	ctrl.mu.Unlock()

	first := ctrl.requestStop()
	require.True(t, first.OK)
	require.Equal(t, "stop requested", first.Message)

	second := ctrl.requestStop()
	require.True(t, second.OK)
	require.Equal(t, "stop already requested", second.Message)
}

func TestEachRunIsANewSession(t *testing.T) {
	first := newFakeProvider()
	first.send(ConnectEvent{}, ai("Prompt"), candidate("Answer"), DisconnectEvent{})
	ctrl := NewController(nil, productSense, first, nil, &fakeEvaluator{id: "abc"}, nil)
	a := ctrl.Run(context.Background())

	second := newFakeProvider()
	second.send(ErrorEvent{})
	ctrl.provider = second
	b := ctrl.Run(context.Background())

	require.NotEqual(t, a.Session.ID, b.Session.ID)
	require.Equal(t, 2, a.Session.Turns)
	require.Zero(t, b.Session.Turns)
}

func TestMissingEvaluatorFailsProcessing(t *testing.T) {
	provider := newFakeProvider()
	provider.send(ConnectEvent{}, ai("Prompt"), candidate("Answer"), DisconnectEvent{})
	ctrl := NewController(nil, productSense, provider, nil, nil, nil)

	outcome := ctrl.Run(context.Background())
	require.ErrorIs(t, outcome.Err, errEvaluatorMissing)
	require.Equal(t, "processing_failed", string(outcome.Target.Code))
}

func TestMissingProviderFailsStart(t *testing.T) {
	ctrl := NewController(nil, productSense, nil, nil, nil, nil)
	outcome := ctrl.Run(context.Background())
	require.Error(t, outcome.Err)
	require.Contains(t, outcome.Err.Error(), "voice provider not configured")
}

func TestAdapterFuncsDelegate(t *testing.T) {
	called := false
	eval := EvaluateFunc(func(_ context.Context, snap Snapshot) (string, error) {
		called = true
		require.Equal(t, "Prompt", snap.Prompt)
		return "id-1", nil
	})
	id, err := eval.Evaluate(context.Background(), Snapshot{Prompt: "Prompt"})
	require.NoError(t, err)
	require.Equal(t, "id-1", id)
	require.True(t, called)

	require.NoError(t, CapabilityFunc(func(context.Context) error { return nil }).Check(context.Background()))
}

func waitForSpeaking(t *testing.T, ctrl *Controller) {
	t.Helper()
	for i := 0; i < 200; i++ {
		if snap, ok := ctrl.Snapshot(); ok && snap.Speaking {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for speaking flag")
}
