package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"
)

// Send performs one request/response exchange with a running interview.
func Send(ctx context.Context, path string, req Request, timeout time.Duration) (Response, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return Response{}, fmt.Errorf("set deadline: %w", err)
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return Response{}, fmt.Errorf("decode response: %w", err)
		}
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}

// Probe checks whether a running interview is listening on path.
func Probe(ctx context.Context, path string, timeout time.Duration) (bool, error) {
	_, err := Send(ctx, path, Request{Command: CommandStatus}, timeout)
	switch {
	case err == nil:
		return true, nil
	case Unreachable(err):
		return false, nil
	default:
		return false, fmt.Errorf("probe socket: %w", err)
	}
}
