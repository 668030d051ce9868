package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/rbright/parley/internal/fsm"
	"github.com/rbright/parley/internal/transcript"
)

// Agent identifies the voice agent and the rubric it is graded against.
type Agent struct {
	ID            string
	InterviewType string
}

// Session is one interview attempt. It is never reused; a retry is a new value.
type Session struct {
	ID          string
	Agent       Agent
	StartedAt   time.Time
	ConnectedAt time.Time
	EndedAt     time.Time

	state     fsm.State
	speaking  bool
	turns     *transcript.Accumulator
	triggered bool
}

func newSession(agent Agent, now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Agent:     agent,
		StartedAt: now,
		state:     fsm.StateIdle,
		turns:     transcript.New(),
	}
}

// Snapshot is an immutable copy of session data handed to the evaluation pipeline.
type Snapshot struct {
	ID            string
	AgentID       string
	InterviewType string
	State         fsm.State
	Speaking      bool
	Transcript    string
	Prompt        string
	Turns         int
	StartedAt     time.Time
	ConnectedAt   time.Time
	EndedAt       time.Time
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		ID:            s.ID,
		AgentID:       s.Agent.ID,
		InterviewType: s.Agent.InterviewType,
		State:         s.state,
		Speaking:      s.speaking,
		Transcript:    s.turns.Snapshot(),
		Prompt:        s.turns.Prompt(),
		Turns:         s.turns.Len(),
		StartedAt:     s.StartedAt,
		ConnectedAt:   s.ConnectedAt,
		EndedAt:       s.EndedAt,
	}
}

// Complete reports whether the snapshot carries both a transcript and a prompt.
func (s Snapshot) Complete() bool {
	return s.Transcript != "" && s.Prompt != ""
}
