// Package results resolves a navigation target into the interview results view.
package results

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rbright/parley/internal/interview"
	"github.com/rbright/parley/internal/rubric"
	"github.com/rbright/parley/internal/transcript"
)

const (
	MessageMissingData       = "The interview data is incomplete. Please try another interview."
	MessageProcessingFailed  = "Failed to process the interview. Please try again."
	MessageConversationError = "An error occurred during the interview. Please try again."
	MessageUnknownError      = "An unknown error occurred. Please try again."
	MessageLoadFailed        = "Failed to load interview results. Please try again."
	MessageNotFound          = "No interview data found"
)

// Status classifies a resolved view.
type Status string

const (
	StatusOK         Status = "ok"
	StatusNotFound   Status = "not_found"
	StatusLoadFailed Status = "load_failed"
	StatusError      Status = "error"
)

// Reader is the Interview Store read side.
type Reader interface {
	Read(ctx context.Context, id string) (interview.Record, error)
}

// CriterionResult is one rubric criterion zipped with its score and justification.
type CriterionResult struct {
	Name          string `json:"name"`
	Emoji         string `json:"emoji,omitempty"`
	Score         int    `json:"score"`
	MaxScore      int    `json:"maxScore"`
	Level         string `json:"level,omitempty"`
	Justification string `json:"justification"`
}

// View is what the results surface renders.
type View struct {
	Status   Status            `json:"status"`
	Message  string            `json:"message,omitempty"`
	Code     string            `json:"code,omitempty"`
	Record   *interview.Record `json:"record,omitempty"`
	Criteria []CriterionResult `json:"criteria,omitempty"`
	Lines    []string          `json:"lines,omitempty"`
}

// OK reports whether the view carries a record.
func (v View) OK() bool {
	return v.Status == StatusOK
}

// Resolver turns targets into views.
type Resolver struct {
	logger  *slog.Logger
	store   Reader
	rubrics rubric.Set
}

// NewResolver builds a resolver. A nil rubric set falls back to the embedded rubrics.
func NewResolver(logger *slog.Logger, store Reader, rubrics rubric.Set) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if rubrics == nil {
		rubrics, _ = rubric.Builtin()
	}
	return &Resolver{logger: logger, store: store, rubrics: rubrics}
}

// Resolve reads the stored interview for an id target or maps an error target to its message.
// It never retries.
func (r *Resolver) Resolve(ctx context.Context, target Target) View {
	if target.Code != "" {
		return ErrorView(target.Code)
	}
	if target.ID == "" || r.store == nil {
		return View{Status: StatusNotFound, Message: MessageNotFound}
	}

	record, err := r.store.Read(ctx, target.ID)
	switch {
	case errors.Is(err, interview.ErrNotFound):
		r.logger.Warn("interview not found", "interview_id", target.ID, "status", string(StatusNotFound))
		return View{Status: StatusNotFound, Message: MessageNotFound}
	case err != nil:
		r.logger.Error("load interview failed", "interview_id", target.ID, "error", err.Error())
		return View{Status: StatusLoadFailed, Message: MessageLoadFailed}
	}

	return View{
		Status:   StatusOK,
		Record:   &record,
		Criteria: r.zip(record),
		Lines:    transcript.Lines(record.Transcript),
	}
}

var codeMessages = map[interview.ErrorCode]string{
	interview.CodeMissingData:       MessageMissingData,
	interview.CodeProcessingFailed:  MessageProcessingFailed,
	interview.CodeConversationError: MessageConversationError,
}

// ErrorView maps a navigation error code to its message.
func ErrorView(code interview.ErrorCode) View {
	view := View{Status: StatusError, Code: string(code), Message: MessageUnknownError}
	if code.Known() {
		view.Message = codeMessages[code]
	}
	return view
}

func (r *Resolver) zip(record interview.Record) []CriterionResult {
	rb, err := r.rubrics.Lookup(record.InterviewType)
	if err != nil {
		r.logger.Warn("rubric missing for stored interview", "interview_id", record.ID, "interview_type", record.InterviewType)
	}

	out := make([]CriterionResult, 0, len(record.Scores))
	for i, score := range record.Scores {
		item := CriterionResult{Name: fmt.Sprintf("Criterion %d", i+1), Score: score}
		if i < len(record.Justifications) {
			item.Justification = record.Justifications[i]
		}
		if err == nil && i < len(rb.Criteria) {
			c := rb.Criteria[i]
			item.Name = c.Name
			item.Emoji = c.Emoji
			item.MaxScore = len(c.Levels)
			item.Level = c.Describe(score)
		}
		out = append(out, item)
	}
	return out
}

// String renders the view as a plain-text report.
func (v View) String() string {
	if !v.OK() {
		return v.Message + "\n"
	}

	var b strings.Builder
	rec := v.Record
	fmt.Fprintf(&b, "Interview Results (%s)\n", rec.InterviewType)
	fmt.Fprintf(&b, "id: %s\n", rec.ID)
	if rec.Feedback != "" {
		fmt.Fprintf(&b, "\nOverall Feedback\n%s\n", rec.Feedback)
	}

	b.WriteString("\nRubric\n")
	for _, c := range v.Criteria {
		label := c.Name
		if c.Emoji != "" {
			label = c.Emoji + " " + c.Name
		}
		if c.MaxScore > 0 {
			fmt.Fprintf(&b, "- %s: %d/%d\n", label, c.Score, c.MaxScore)
		} else {
			fmt.Fprintf(&b, "- %s: %d\n", label, c.Score)
		}
		if c.Level != "" {
			fmt.Fprintf(&b, "    level: %s\n", c.Level)
		}
		if c.Justification != "" {
			fmt.Fprintf(&b, "    %s\n", c.Justification)
		}
	}

	fmt.Fprintf(&b, "\nInterview Prompt\n%s\n", rec.Prompt)
	b.WriteString("\nInterview Transcript\n")
	for _, line := range v.Lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
