package audio

import (
	"context"
	"log/slog"
)

// Microphone resolves the configured input and checks it is usable before an interview.
type Microphone struct {
	pref   Preference
	logger *slog.Logger
	list   func(context.Context) ([]Device, error)
}

// NewMicrophone builds a Pulse-backed microphone for the given preference.
func NewMicrophone(pref Preference, logger *slog.Logger) *Microphone {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Microphone{pref: pref, logger: logger, list: ListDevices}
}

// Resolve lists devices and applies the preference.
func (m *Microphone) Resolve(ctx context.Context) (Selection, error) {
	devices, err := m.list(ctx)
	if err != nil {
		return Selection{}, err
	}
	selection, err := m.pref.Select(devices)
	if err != nil {
		return Selection{}, err
	}
	if selection.Warning != "" {
		m.logger.Warn(selection.Warning)
	}
	return selection, nil
}

// Check succeeds when a usable, unmuted input is available.
func (m *Microphone) Check(ctx context.Context) error {
	selection, err := m.Resolve(ctx)
	if err != nil {
		return err
	}
	m.logger.Info("microphone ready", "device", selection.Device.Label())
	return nil
}

// Open starts capture on the resolved input.
func (m *Microphone) Open(ctx context.Context) (*Capture, error) {
	selection, err := m.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return StartCapture(ctx, selection.Device)
}
