// Package indicator surfaces interview session state as desktop notifications.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/parley/internal/config"
)

const (
	persistentTimeoutMS = 0
	dispatchTimeout     = 400 * time.Millisecond
)

// Notifier is the concrete session indicator. It routes through the desktop DBus
// notification service or Hyprland based on config backend.
type Notifier struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages

	mu                    sync.Mutex
	desktopNotificationID uint32
	errorPending          bool
}

// New creates an indicator from config.
func New(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	return &Notifier{
		cfg:      cfg,
		logger:   logger,
		messages: defaultMessages,
	}
}

func (n *Notifier) ShowConnecting(ctx context.Context) {
	n.show(ctx, iconInfo, persistentTimeoutMS, "rgb(89b4fa)", n.messages.connecting)
}

func (n *Notifier) ShowConnected(ctx context.Context) {
	n.show(ctx, iconInfo, persistentTimeoutMS, "rgb(a6e3a1)", n.messages.connected)
}

// ShowSpeaking toggles between the interviewer-speaking and listening states.
func (n *Notifier) ShowSpeaking(ctx context.Context, speaking bool) {
	if speaking {
		n.show(ctx, iconInfo, persistentTimeoutMS, "rgb(cba6f7)", n.messages.speaking)
		return
	}
	n.show(ctx, iconInfo, persistentTimeoutMS, "rgb(a6e3a1)", n.messages.listening)
}

func (n *Notifier) ShowEvaluating(ctx context.Context) {
	n.show(ctx, iconInfo, persistentTimeoutMS, "rgb(f9e2af)", n.messages.evaluating)
}

// ShowError displays an error-state message that expires on its own timeout. The next
// Hide leaves it in place.
func (n *Notifier) ShowError(ctx context.Context, text string) {
	if text == "" {
		text = n.messages.errorText
	}
	timeout := n.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 1200
	}
	n.show(ctx, iconError, timeout, "rgb(f38ba8)", text)

	n.mu.Lock()
	n.errorPending = true
	n.mu.Unlock()
}

// Hide dismisses the active indicator surface.
func (n *Notifier) Hide(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.mu.Lock()
	pending := n.errorPending
	n.errorPending = false
	if pending {
		n.desktopNotificationID = 0
	}
	n.mu.Unlock()
	if pending {
		return
	}
	n.run(ctx, n.dismiss)
}

func (n *Notifier) show(ctx context.Context, icon int, timeoutMS int, color string, text string) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, icon, timeoutMS, color, text)
	})
}

func (n *Notifier) desktop() bool {
	return strings.EqualFold(strings.TrimSpace(n.cfg.Backend), "desktop")
}

// notify dispatches indicator output through the configured backend.
func (n *Notifier) notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if n.desktop() {
		level := urgencyNormal
		if icon == iconError {
			level = urgencyCritical
		}
		return n.notifyDesktop(ctx, timeoutMS, text, level)
	}
	if timeoutMS == persistentTimeoutMS {
		// hyprctl treats 0 as instant expiry.
		timeoutMS = 3600000
	}
	return hyprNotify(ctx, icon, timeoutMS, color, text)
}

// dismiss removes indicator output from the configured backend.
func (n *Notifier) dismiss(ctx context.Context) error {
	if n.desktop() {
		return n.dismissDesktop(ctx)
	}
	return hyprDismiss(ctx)
}

// notifyDesktop sends a replaceable desktop notification and stores its ID.
func (n *Notifier) notifyDesktop(ctx context.Context, timeoutMS int, text string, level urgency) error {
	n.mu.Lock()
	replaceID := n.desktopNotificationID
	n.mu.Unlock()

	appName := strings.TrimSpace(n.cfg.DesktopAppName)
	if appName == "" {
		appName = "parley"
	}

	id, err := desktopNotify(ctx, appName, replaceID, text, timeoutMS, level)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.desktopNotificationID = id
	n.mu.Unlock()
	return nil
}

// dismissDesktop closes the current desktop notification ID when present.
func (n *Notifier) dismissDesktop(ctx context.Context) error {
	n.mu.Lock()
	id := n.desktopNotificationID
	n.desktopNotificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes an indicator operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// log emits debug-only indicator failures to the runtime logger.
func (n *Notifier) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
