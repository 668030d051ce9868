// Package interview holds the scored-interview data model shared by scoring, storage, and results.
package interview

import (
	"errors"
	"fmt"
	"time"
)

// Evaluation is one Scoring Service result. Scores and Justifications are parallel.
type Evaluation struct {
	Scores          []int    `json:"scores"`
	Justifications  []string `json:"justifications"`
	OverallFeedback string   `json:"overall_feedback"`
}

// Draft is an interview record before the store assigns an identifier.
type Draft struct {
	Transcript     string   `json:"transcript"`
	Prompt         string   `json:"prompt"`
	InterviewType  string   `json:"interviewType"`
	Scores         []int    `json:"scores"`
	Justifications []string `json:"justifications"`
	Feedback       string   `json:"feedback"`
}

// Record is a persisted, append-only interview.
type Record struct {
	ID             string    `json:"id"`
	Transcript     string    `json:"transcript"`
	Prompt         string    `json:"prompt"`
	InterviewType  string    `json:"interviewType"`
	Scores         []int     `json:"scores"`
	Justifications []string  `json:"justifications"`
	Feedback       string    `json:"feedback"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewDraft combines session output with an evaluation.
func NewDraft(transcript, prompt, interviewType string, evaluation Evaluation) Draft {
	return Draft{
		Transcript:     transcript,
		Prompt:         prompt,
		InterviewType:  interviewType,
		Scores:         append([]int(nil), evaluation.Scores...),
		Justifications: append([]string(nil), evaluation.Justifications...),
		Feedback:       evaluation.OverallFeedback,
	}
}

// Draft strips the identity fields from the record.
func (r Record) Draft() Draft {
	return Draft{
		Transcript:     r.Transcript,
		Prompt:         r.Prompt,
		InterviewType:  r.InterviewType,
		Scores:         r.Scores,
		Justifications: r.Justifications,
		Feedback:       r.Feedback,
	}
}

// Validate enforces the score/justification length invariant for criteria rubric criteria.
func (d Draft) Validate(criteria int) error {
	return CheckLengths(criteria, len(d.Scores), len(d.Justifications))
}

// CheckLengths reports ErrIntegrity unless scores == justifications == criteria.
func CheckLengths(criteria, scores, justifications int) error {
	if criteria <= 0 {
		return fmt.Errorf("%w: rubric has no criteria", ErrIntegrity)
	}
	if scores != criteria || justifications != criteria {
		return fmt.Errorf("%w: got %d scores and %d justifications for %d criteria",
			ErrIntegrity, scores, justifications, criteria)
	}
	return nil
}

var (
	// ErrNotFound indicates the store has no record for an identifier.
	ErrNotFound = errors.New("interview not found")
	// ErrIntegrity indicates scores or justifications violate the rubric shape.
	ErrIntegrity = errors.New("interview data integrity violation")
	// ErrUnknownInterviewType indicates no rubric is registered for a type.
	ErrUnknownInterviewType = errors.New("unknown interview type")
)
