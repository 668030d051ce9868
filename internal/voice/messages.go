package voice

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/rbright/parley/internal/session"
	"github.com/rbright/parley/internal/transcript"
)

// Server message types on the conversation socket.
const (
	msgInitiation    = "conversation_initiation_metadata"
	msgAgentResponse = "agent_response"
	msgUserSpeech    = "user_transcript"
	msgAudio         = "audio"
	msgInterruption  = "interruption"
	msgPing          = "ping"
)

type pong struct {
	Type    string `json:"type"`
	EventID int64  `json:"event_id"`
}

type audioChunk struct {
	UserAudioChunk string `json:"user_audio_chunk"`
}

// decoded is the reduction of one server frame.
type decoded struct {
	events []session.Event
	reply  *pong
	kind   string
}

// decodeMessage maps one server frame to session events. Unknown and blank messages yield nothing.
func decodeMessage(raw []byte) decoded {
	msg := gjson.ParseBytes(raw)
	kind := msg.Get("type").String()
	out := decoded{kind: kind}

	switch kind {
	case msgInitiation:
		out.events = append(out.events, session.ConnectEvent{})
	case msgAgentResponse:
		if text := strings.TrimSpace(msg.Get("agent_response_event.agent_response").String()); text != "" {
			out.events = append(out.events, session.MessageEvent{
				Turn: transcript.Turn{Text: text, Speaker: transcript.SpeakerAI},
			})
		}
	case msgUserSpeech:
		if text := strings.TrimSpace(msg.Get("user_transcription_event.user_transcript").String()); text != "" {
			out.events = append(out.events,
				session.ModeEvent{Speaking: false},
				session.MessageEvent{Turn: transcript.Turn{Text: text, Speaker: transcript.SpeakerCandidate}},
			)
		}
	case msgAudio:
		out.events = append(out.events, session.ModeEvent{Speaking: true})
	case msgInterruption:
		out.events = append(out.events, session.ModeEvent{Speaking: false})
	case msgPing:
		out.reply = &pong{Type: "pong", EventID: msg.Get("ping_event.event_id").Int()}
	}
	return out
}
