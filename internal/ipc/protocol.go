// Package ipc carries control commands between the CLI and a running interview over a unix socket.
package ipc

// Commands understood by a running interview.
const (
	CommandStatus = "status"
	CommandStop   = "stop"
)

type Request struct {
	Command string `json:"command"`
}

// Response reports the interview session as seen by its owner process.
type Response struct {
	OK            bool   `json:"ok"`
	State         string `json:"state,omitempty"`
	SessionID     string `json:"session_id,omitempty"`
	InterviewType string `json:"interview_type,omitempty"`
	Speaking      bool   `json:"speaking,omitempty"`
	Turns         int    `json:"turns,omitempty"`
	ElapsedMS     int64  `json:"elapsed_ms,omitempty"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
}
