package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const (
	notificationsDest = "org.freedesktop.Notifications"
	notificationsPath = "/org/freedesktop/Notifications"

	// hyprctl icon ids.
	iconInfo  = 1
	iconError = 3
)

// urgency is the freedesktop notification urgency hint.
type urgency byte

const (
	urgencyNormal   urgency = 1
	urgencyCritical urgency = 2
)

// desktopNotify sends or replaces a freedesktop notification over DBus and returns the id
// assigned by the server.
func desktopNotify(ctx context.Context, appName string, replaceID uint32, summary string, timeoutMS int, level urgency) (uint32, error) {
	out, err := busctl(ctx, "Notify", "susssasa{sv}i",
		appName,
		strconv.FormatUint(uint64(replaceID), 10),
		"",
		summary,
		"",
		"0", // no actions
		"1", "urgency", "y", strconv.Itoa(int(level)),
		strconv.Itoa(timeoutMS),
	)
	if err != nil {
		return 0, err
	}

	fields := strings.Fields(out)
	if len(fields) != 2 || fields[0] != "u" {
		return 0, fmt.Errorf("desktop notify: unexpected reply %q", out)
	}
	id, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("desktop notify: parse id %q: %w", fields[1], err)
	}
	return uint32(id), nil
}

// desktopDismiss closes a notification by id.
func desktopDismiss(ctx context.Context, id uint32) error {
	_, err := busctl(ctx, "CloseNotification", "u", strconv.FormatUint(uint64(id), 10))
	return err
}

func busctl(ctx context.Context, method, signature string, args ...string) (string, error) {
	argv := append([]string{"--user", "call", notificationsDest, notificationsPath, notificationsDest, method, signature}, args...)
	return runTool(ctx, "busctl", argv...)
}

// hyprNotify shows a Hyprland notification through hyprctl.
func hyprNotify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if strings.TrimSpace(color) == "" {
		color = "rgb(89b4fa)"
	}
	_, err := runTool(ctx, "hyprctl", "--quiet", "dispatch", "notify", strconv.Itoa(icon), strconv.Itoa(timeoutMS), color, text)
	return err
}

// hyprDismiss dismisses active Hyprland notifications.
func hyprDismiss(ctx context.Context) error {
	_, err := runTool(ctx, "hyprctl", "--quiet", "dispatch", "dismissnotify")
	return err
}

// runTool runs bin and returns its trimmed combined output.
func runTool(ctx context.Context, bin string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, bin, args...).CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if trimmed == "" {
			return "", fmt.Errorf("%s: %w", bin, err)
		}
		return "", fmt.Errorf("%s: %w (%s)", bin, err, trimmed)
	}
	return trimmed, nil
}
