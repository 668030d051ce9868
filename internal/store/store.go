// Package store persists scored interviews.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rbright/parley/internal/interview"
	"github.com/rbright/parley/internal/rubric"
)

const (
	KindMemory   = "memory"
	KindPostgres = "postgres"
)

// Store is the Interview Store: durable create and read of scored interviews.
type Store interface {
	Create(ctx context.Context, draft interview.Draft) (string, error)
	Read(ctx context.Context, id string) (interview.Record, error)
	Ping(ctx context.Context) error
	Close() error
}

// validate checks a draft against its rubric before any write.
func validate(rubrics rubric.Set, draft interview.Draft) error {
	r, err := rubrics.Lookup(draft.InterviewType)
	if err != nil {
		return err
	}
	if err := draft.Validate(r.CriteriaCount()); err != nil {
		return err
	}
	if strings.TrimSpace(draft.Transcript) == "" || strings.TrimSpace(draft.Prompt) == "" {
		return fmt.Errorf("%w: transcript and prompt are required", interview.ErrIntegrity)
	}
	return nil
}

func builtinRubrics(rubrics rubric.Set) rubric.Set {
	if rubrics != nil {
		return rubrics
	}
	set, _ := rubric.Builtin()
	return set
}
