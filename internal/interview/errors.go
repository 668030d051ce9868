package interview

import (
	"errors"
	"fmt"
)

// ErrorCode is the navigation-level failure handed to result resolution.
type ErrorCode string

const (
	CodeMissingData       ErrorCode = "missing_data"
	CodeProcessingFailed  ErrorCode = "processing_failed"
	CodeConversationError ErrorCode = "conversation_error"
)

// Known reports whether the code belongs to the closed set.
func (c ErrorCode) Known() bool {
	switch c {
	case CodeMissingData, CodeProcessingFailed, CodeConversationError:
		return true
	default:
		return false
	}
}

// CapabilityError means a device capability (microphone) was unavailable at start.
type CapabilityError struct {
	Capability string
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Capability, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// SessionError means the voice provider failed to start or communicate.
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("voice session %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// DataIncompleteError means the session ended without a transcript or prompt.
type DataIncompleteError struct {
	MissingTranscript bool
	MissingPrompt     bool
}

func (e *DataIncompleteError) Error() string {
	switch {
	case e.MissingTranscript && e.MissingPrompt:
		return "interview data incomplete: transcript and prompt are empty"
	case e.MissingTranscript:
		return "interview data incomplete: transcript is empty"
	default:
		return "interview data incomplete: prompt is empty"
	}
}

// Stage names one evaluation pipeline step.
type Stage string

const (
	StageScore   Stage = "score"
	StagePersist Stage = "persist"
)

// PipelineError means scoring or persistence failed.
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("evaluation pipeline %s stage: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// ServiceError is a Scoring Service failure (transport or malformed output).
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("scoring service %s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// StoreError is an Interview Store transport failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("interview store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// CodeFor maps a session failure onto its navigation error code. A nil error and a
// capability failure have no code: neither navigates to a results view.
func CodeFor(err error) ErrorCode {
	var (
		capability *CapabilityError
		incomplete *DataIncompleteError
		pipeline   *PipelineError
	)
	switch {
	case err == nil, errors.As(err, &capability):
		return ""
	case errors.As(err, &incomplete):
		return CodeMissingData
	case errors.As(err, &pipeline):
		return CodeProcessingFailed
	default:
		return CodeConversationError
	}
}
