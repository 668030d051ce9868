package session

import "github.com/rbright/parley/internal/transcript"

// Event is one callback from the voice provider. The set of variants is closed.
type Event interface {
	isEvent()
}

// ConnectEvent reports the provider session is live.
type ConnectEvent struct{}

// DisconnectEvent reports the provider ended the session normally.
type DisconnectEvent struct {
	Reason string
}

// MessageEvent carries one finalized conversational turn.
type MessageEvent struct {
	Turn transcript.Turn
}

// ErrorEvent reports a provider failure.
type ErrorEvent struct {
	Err error
}

// ModeEvent reports whether the remote agent is speaking.
type ModeEvent struct {
	Speaking bool
}

func (ConnectEvent) isEvent()    {}
func (DisconnectEvent) isEvent() {}
func (MessageEvent) isEvent()    {}
func (ErrorEvent) isEvent()      {}
func (ModeEvent) isEvent()       {}
