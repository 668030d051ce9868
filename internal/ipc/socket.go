package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

const (
	claimProbeTimeout = 180 * time.Millisecond
	claimRetries      = 8
)

// ErrAlreadyRunning indicates another interview owns the control socket.
var ErrAlreadyRunning = errors.New("parley interview already running")

// RuntimeSocketPath is the per-user control socket location.
func RuntimeSocketPath() (string, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, "parley.sock"), nil
}

// Socket is a claimed control socket. Closing it removes the socket file.
type Socket struct {
	net.Listener
	path string
}

// Path is the socket file location.
func (s *Socket) Path() string { return s.path }

func (s *Socket) Close() error {
	err := s.Listener.Close()
	if removeErr := os.Remove(s.path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) && err == nil {
		err = removeErr
	}
	return err
}

// Claim listens on path for the lifetime of one interview. A socket left by a crashed
// interview is removed; a responsive owner yields ErrAlreadyRunning.
func Claim(ctx context.Context, path string) (*Socket, error) {
	return claim(ctx, path, claimProbeTimeout, claimRetries)
}

func claim(ctx context.Context, path string, probeTimeout time.Duration, retries int) (*Socket, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	for attempt := 0; ; attempt++ {
		listener, err := net.Listen("unix", path)
		if err == nil {
			_ = os.Chmod(path, 0o600)
			return &Socket{Listener: listener, path: path}, nil
		}
		if !isAddrInUse(err) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}

		alive, probeErr := Probe(ctx, path, probeTimeout)
		switch {
		case alive:
			return nil, ErrAlreadyRunning
		case probeErr != nil:
			return nil, fmt.Errorf("probe existing socket %s: %w", path, probeErr)
		}

		if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, removeErr)
		}
		if attempt >= retries {
			return nil, fmt.Errorf("claim socket %s: still in use after %d retries", path, retries)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(25*(attempt+1)) * time.Millisecond):
		}
	}
}

// Unreachable reports dial failures meaning no interview is listening.
func Unreachable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE) || strings.Contains(err.Error(), "address already in use")
}
