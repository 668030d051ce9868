// Package fsm defines the interview session lifecycle.
//
//	idle --start--> connecting --connect--> connected --disconnect--> disconnected
//
// fail moves any live state straight to disconnected. disconnected is terminal.
package fsm

import (
	"errors"
	"fmt"
)

type State string

type Event string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
)

const (
	EventStart      Event = "start"
	EventConnect    Event = "connect"
	EventDisconnect Event = "disconnect"
	EventFail       Event = "fail"
)

// ErrInvalidTransition is wrapped by Transition when event is not accepted in the
// current state.
var ErrInvalidTransition = errors.New("invalid transition")

var transitions = map[State]map[Event]State{
	StateIdle: {
		EventStart: StateConnecting,
		EventFail:  StateDisconnected,
	},
	StateConnecting: {
		EventConnect: StateConnected,
		EventFail:    StateDisconnected,
	},
	StateConnected: {
		EventDisconnect: StateDisconnected,
		EventFail:       StateDisconnected,
	},
	StateDisconnected: {},
}

// Terminal reports whether no further transitions are possible from s.
func (s State) Terminal() bool {
	return s == StateDisconnected
}

// Live reports whether a session in s holds an open voice connection or is opening one.
func (s State) Live() bool {
	return s == StateConnecting || s == StateConnected
}

// Transition returns the state reached from current on event. On error current is
// returned unchanged.
func Transition(current State, event Event) (State, error) {
	edges, known := transitions[current]
	if !known {
		return current, fmt.Errorf("unknown state %q", current)
	}
	next, ok := edges[event]
	if !ok {
		return current, fmt.Errorf("%w: %s --(%s)--> ?", ErrInvalidTransition, current, event)
	}
	return next, nil
}
