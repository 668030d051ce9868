package voice

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/parley/internal/session"
	"github.com/rbright/parley/internal/transcript"
)

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  []session.Event
		reply *pong
	}{
		{
			name: "initiation connects",
			raw:  `{"type":"conversation_initiation_metadata","conversation_initiation_metadata_event":{"conversation_id":"c1"}}`,
			want: []session.Event{session.ConnectEvent{}},
		},
		{
			name: "agent response is an AI turn",
			raw:  `{"type":"agent_response","agent_response_event":{"agent_response":" Design a product for commuters. "}}`,
			want: []session.Event{session.MessageEvent{Turn: transcript.Turn{Text: "Design a product for commuters.", Speaker: transcript.SpeakerAI}}},
		},
		{
			name: "user transcript yields and records a candidate turn",
			raw:  `{"type":"user_transcript","user_transcription_event":{"user_transcript":"I'd start with users."}}`,
			want: []session.Event{
				session.ModeEvent{Speaking: false},
				session.MessageEvent{Turn: transcript.Turn{Text: "I'd start with users.", Speaker: transcript.SpeakerCandidate}},
			},
		},
		{
			name: "blank transcript dropped",
			raw:  `{"type":"user_transcript","user_transcription_event":{"user_transcript":"   "}}`,
		},
		{
			name: "audio means speaking",
			raw:  `{"type":"audio","audio_event":{"audio_base_64":"AAAA","event_id":3}}`,
			want: []session.Event{session.ModeEvent{Speaking: true}},
		},
		{
			name: "interruption means listening",
			raw:  `{"type":"interruption","interruption_event":{"event_id":4}}`,
			want: []session.Event{session.ModeEvent{Speaking: false}},
		},
		{
			name:  "ping replies pong",
			raw:   `{"type":"ping","ping_event":{"event_id":7,"ping_ms":40}}`,
			reply: &pong{Type: "pong", EventID: 7},
		},
		{name: "unknown ignored", raw: `{"type":"vad_score"}`},
		{name: "garbage ignored", raw: `not json`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := decodeMessage([]byte(tc.raw))
			require.Equal(t, tc.want, got.events)
			require.Equal(t, tc.reply, got.reply)
		})
	}
}
