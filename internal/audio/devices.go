// Package audio discovers Pulse input sources, checks the microphone, and captures PCM for the voice uplink.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const appName = "parley"

// Device describes one Pulse input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Usable reports whether the device can capture speech right now.
func (d Device) Usable() bool {
	return d.Available && !d.Muted
}

// Label formats device metadata for logs and diagnostics.
func (d Device) Label() string {
	description := strings.TrimSpace(d.Description)
	id := strings.TrimSpace(d.ID)
	switch {
	case description == "":
		return id
	case id == "":
		return description
	default:
		return fmt.Sprintf("%s (%s)", description, id)
	}
}

// Selection is the resolved capture source plus an optional fallback warning.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

// Preference is the configured input/fallback match terms. "" and "default" mean the default source.
type Preference struct {
	Input    string
	Fallback string
}

func newPulseClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(appName),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// ListDevices returns Pulse input sources with default/availability metadata.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	var infos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &infos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return devicesFromInfo(infos, defaultSource.ID()), nil
}

func devicesFromInfo(infos pulseproto.GetSourceInfoListReply, defaultID string) []Device {
	devices := make([]Device, 0, len(infos))
	for _, source := range infos {
		if source == nil {
			continue
		}
		// Monitor sources echo playback and never carry the candidate's voice.
		if strings.HasSuffix(source.SourceName, ".monitor") {
			continue
		}
		devices = append(devices, Device{
			ID:          source.SourceName,
			Description: source.Device,
			State:       sourceStateString(source.State),
			Available:   sourceAvailable(source),
			Muted:       source.Mute,
			Default:     source.SourceName == defaultID,
		})
	}
	return devices
}

// Select applies the preference to a device list. An unusable primary falls back to the
// fallback term (or the default source) with a warning.
func (p Preference) Select(devices []Device) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no audio input devices found")
	}

	input := normalizeTerm(p.Input)
	fallback := normalizeTerm(p.Fallback)

	primary, err := pick(devices, input, "audio.input")
	if err != nil {
		return Selection{}, err
	}
	if primary.Usable() {
		return Selection{Device: primary}, nil
	}

	reason := "unavailable"
	if primary.Muted {
		reason = "muted"
	}

	alternate, err := pick(devices, fallback, "audio.fallback")
	if err != nil {
		return Selection{}, fmt.Errorf("primary input %q is %s and no usable fallback: %w", primary.ID, reason, err)
	}
	if !alternate.Available {
		return Selection{}, fmt.Errorf("audio fallback device %q is not available", alternate.ID)
	}
	if alternate.Muted {
		return Selection{}, fmt.Errorf("audio fallback device %q is muted", alternate.ID)
	}

	return Selection{
		Device:   alternate,
		Warning:  fmt.Sprintf("audio.input %q is %s; falling back to %q", primary.ID, reason, alternate.ID),
		Fallback: alternate.ID != primary.ID,
	}, nil
}

// pick returns the default source for an empty term, else the first match.
func pick(devices []Device, term string, key string) (Device, error) {
	if term == "" {
		for _, dev := range devices {
			if dev.Default {
				return dev, nil
			}
		}
		return Device{}, errors.New("default audio source is unavailable")
	}
	for _, dev := range devices {
		if deviceMatches(dev, term) {
			return dev, nil
		}
	}
	return Device{}, fmt.Errorf("%s %q did not match any device", key, term)
}

func normalizeTerm(term string) string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "default" {
		return ""
	}
	return term
}

// deviceMatches reports whether a lowercase term matches a device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(device.ID), term) ||
		strings.Contains(strings.ToLower(device.Description), term)
}

func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sourceAvailable maps Pulse port availability to a boolean.
func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	for _, port := range source.Ports {
		if port.Name != source.ActivePortName {
			continue
		}
		// PulseAudio values: unknown=0, no=1, yes=2.
		return port.Available != 1
	}
	return true
}
