// Package output hands a finished session's results link to the user.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/rbright/parley/internal/config"
	"github.com/rbright/parley/internal/results"
)

const clipboardTimeout = 2 * time.Second

// Handoff turns a result target into a results URL and optionally copies it.
type Handoff struct {
	config config.Config
	logger *slog.Logger
}

// NewHandoff constructs a results handoff from runtime config.
func NewHandoff(cfg config.Config, logger *slog.Logger) *Handoff {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handoff{config: cfg, logger: logger}
}

// Deliver returns the results URL for target. When the clipboard is enabled the URL is
// copied; a clipboard failure is returned alongside the URL.
func (h *Handoff) Deliver(ctx context.Context, target results.Target) (string, error) {
	if target.IsZero() {
		return "", nil
	}

	link := target.URL(h.config.ResultsBaseURL)
	if !h.config.Clipboard.Enable {
		return link, nil
	}

	clipboardCtx, cancel := context.WithTimeout(ctx, clipboardTimeout)
	defer cancel()
	if err := runCommandWithInput(clipboardCtx, h.config.Clipboard.Argv, link); err != nil {
		h.logger.Warn("results link not copied", "error", err.Error())
		return link, fmt.Errorf("set clipboard: %w", err)
	}
	h.logger.Info("results link copied", "url", link)
	return link, nil
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
