package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rbright/parley/internal/ipc"
)

// commandStatus asks a running interview for its state. No socket or no listener means idle.
func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStatus)
	switch {
	case !handled:
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	case err != nil:
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, formatStatus(resp))
	return 0
}

// commandStop asks the running interview to end its session.
func (r Runner) commandStop(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStop)
	switch {
	case !handled:
		fmt.Fprintln(r.Stderr, "error: no active parley interview")
		return 1
	case err != nil:
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// tryForward sends command to the socket owner. handled is false when nobody is listening.
func tryForward(ctx context.Context, socketPath string, command string) (resp ipc.Response, handled bool, err error) {
	resp, err = ipc.Send(ctx, socketPath, ipc.Request{Command: command}, forwardTimeout)
	switch {
	case err == nil && resp.OK:
		return resp, true, nil
	case err == nil:
		return resp, true, errors.New(resp.Error)
	case ipc.Unreachable(err):
		return ipc.Response{}, false, nil
	default:
		return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
	}
}

// formatStatus renders a status reply as one line.
func formatStatus(resp ipc.Response) string {
	state := resp.State
	if state == "" {
		state = "idle"
	}
	if resp.SessionID == "" {
		return state
	}

	parts := []string{state, "session=" + resp.SessionID}
	if resp.InterviewType != "" {
		parts = append(parts, "type="+resp.InterviewType)
	}
	parts = append(parts, fmt.Sprintf("turns=%d", resp.Turns))
	if resp.ElapsedMS > 0 {
		parts = append(parts, "elapsed="+(time.Duration(resp.ElapsedMS)*time.Millisecond).Round(time.Second).String())
	}
	if resp.Speaking {
		parts = append(parts, "interviewer speaking")
	}
	return strings.Join(parts, " ")
}
