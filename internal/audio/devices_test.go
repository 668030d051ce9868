package audio

import (
	"context"
	"errors"
	"reflect"
	"testing"

	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/require"
)

func TestSelectPrimaryDefault(t *testing.T) {
	devices := []Device{
		{ID: "elgato", Description: "Elgato Wave 3 Mono", Available: true, Default: true},
		{ID: "sony", Description: "Sony WH-1000XM6", Available: true},
	}

	selection, err := Preference{Input: "default", Fallback: "default"}.Select(devices)
	require.NoError(t, err)
	require.Equal(t, "elgato", selection.Device.ID)
	require.Empty(t, selection.Warning)
}

func TestSelectMutedPrimaryUsesFallback(t *testing.T) {
	devices := []Device{
		{ID: "elgato", Description: "Elgato Wave 3 Mono", Available: true, Muted: true, Default: true},
		{ID: "sony", Description: "Sony WH-1000XM6", Available: true},
	}

	selection, err := Preference{Input: "Elgato", Fallback: "sony"}.Select(devices)
	require.NoError(t, err)
	require.Equal(t, "sony", selection.Device.ID)
	require.Contains(t, selection.Warning, "muted")
	require.True(t, selection.Fallback)
}

func TestSelectUnavailablePrimaryFallsBackToDefault(t *testing.T) {
	devices := []Device{
		{ID: "usb-headset", Description: "USB Headset", Available: false},
		{ID: "builtin", Description: "Built-in Mic", Available: true, Default: true},
	}

	selection, err := Preference{Input: "headset"}.Select(devices)
	require.NoError(t, err)
	require.Equal(t, "builtin", selection.Device.ID)
	require.Contains(t, selection.Warning, "unavailable")
}

func TestSelectFailures(t *testing.T) {
	tests := []struct {
		name    string
		devices []Device
		pref    Preference
		want    string
	}{
		{name: "no devices", devices: nil, want: "no audio input devices"},
		{
			name:    "default muted",
			devices: []Device{{ID: "elgato", Available: true, Muted: true, Default: true}},
			want:    "muted",
		},
		{
			name:    "unknown input",
			devices: []Device{{ID: "elgato", Description: "Elgato Wave 3 Mono", Available: true, Default: true}},
			pref:    Preference{Input: "missing"},
			want:    "did not match",
		},
		{
			name:    "no default",
			devices: []Device{{ID: "elgato", Available: true}},
			want:    "default audio source is unavailable",
		},
		{
			name: "fallback not found",
			devices: []Device{
				{ID: "elgato", Available: true, Muted: true, Default: true},
			},
			pref: Preference{Fallback: "sony"},
			want: "no usable fallback",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.pref.Select(tc.devices)
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestDeviceMatchesByIDAndDescription(t *testing.T) {
	dev := Device{ID: "alsa_input.usb-elgato", Description: "Elgato Wave 3 Mono"}
	require.True(t, deviceMatches(dev, "elgato"))
	require.True(t, deviceMatches(dev, "wave 3"))
	require.False(t, deviceMatches(dev, "missing"))
	require.False(t, deviceMatches(dev, ""))
}

func TestDeviceLabel(t *testing.T) {
	require.Equal(t, "Elgato (alsa_input.wave3)", Device{Description: "Elgato", ID: "alsa_input.wave3"}.Label())
	require.Equal(t, "Elgato", Device{Description: "Elgato"}.Label())
	require.Equal(t, "alsa_input.wave3", Device{ID: "alsa_input.wave3"}.Label())
}

func TestDevicesFromInfoSkipsMonitors(t *testing.T) {
	infos := pulseproto.GetSourceInfoListReply{
		{SourceName: "alsa_input.mic", Device: "Mic", Mute: true},
		{SourceName: "alsa_output.speakers.monitor", Device: "Monitor"},
		nil,
	}

	devices := devicesFromInfo(infos, "alsa_input.mic")
	require.Len(t, devices, 1)
	require.Equal(t, "alsa_input.mic", devices[0].ID)
	require.True(t, devices[0].Default)
	require.True(t, devices[0].Muted)
	require.False(t, devices[0].Usable())
}

func TestListDevicesFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := ListDevices(context.Background())
	require.Error(t, err)
}

func TestSourceStateString(t *testing.T) {
	require.Equal(t, "running", sourceStateString(0))
	require.Equal(t, "idle", sourceStateString(1))
	require.Equal(t, "suspended", sourceStateString(2))
	require.Equal(t, "unknown(99)", sourceStateString(99))
}

func TestSourceAvailable(t *testing.T) {
	require.False(t, sourceAvailable(nil))
	require.True(t, sourceAvailable(&pulseproto.GetSourceInfoReply{}))

	available := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, available, []sourcePort{{name: "mic", available: 2}})
	require.True(t, sourceAvailable(available))

	notAvailable := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, notAvailable, []sourcePort{{name: "mic", available: 1}})
	require.False(t, sourceAvailable(notAvailable))
}

func TestMicrophoneCheck(t *testing.T) {
	mic := NewMicrophone(Preference{}, nil)
	mic.list = func(context.Context) ([]Device, error) {
		return []Device{{ID: "mic", Available: true, Default: true}}, nil
	}
	require.NoError(t, mic.Check(context.Background()))

	mic.list = func(context.Context) ([]Device, error) {
		return []Device{{ID: "mic", Available: true, Muted: true, Default: true}}, nil
	}
	require.ErrorContains(t, mic.Check(context.Background()), "muted")

	mic.list = func(context.Context) ([]Device, error) {
		return nil, errors.New("connect pulse server: refused")
	}
	require.ErrorContains(t, mic.Check(context.Background()), "refused")
}

type sourcePort struct {
	name      string
	available uint32
}

func setSourcePorts(t *testing.T, reply *pulseproto.GetSourceInfoReply, ports []sourcePort) {
	t.Helper()

	sliceType := reflect.TypeOf(reply.Ports)
	sliceValue := reflect.MakeSlice(sliceType, len(ports), len(ports))
	for i, port := range ports {
		item := sliceValue.Index(i)
		item.FieldByName("Name").SetString(port.name)
		item.FieldByName("Available").SetUint(uint64(port.available))
	}
	reflect.ValueOf(reply).Elem().FieldByName("Ports").Set(sliceValue)
}
