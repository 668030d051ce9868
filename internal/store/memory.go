package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rbright/parley/internal/interview"
	"github.com/rbright/parley/internal/rubric"
)

// Memory is a process-local store.
type Memory struct {
	rubrics rubric.Set
	now     func() time.Time

	mu      sync.RWMutex
	records map[string]interview.Record
}

// NewMemory builds an empty in-memory store.
func NewMemory(rubrics rubric.Set) *Memory {
	return &Memory{
		rubrics: builtinRubrics(rubrics),
		now:     time.Now,
		records: make(map[string]interview.Record),
	}
}

func (m *Memory) Create(_ context.Context, draft interview.Draft) (string, error) {
	if err := validate(m.rubrics, draft); err != nil {
		return "", err
	}

	rec := interview.Record{
		ID:             uuid.NewString(),
		Transcript:     draft.Transcript,
		Prompt:         draft.Prompt,
		InterviewType:  draft.InterviewType,
		Scores:         append([]int(nil), draft.Scores...),
		Justifications: append([]string(nil), draft.Justifications...),
		Feedback:       draft.Feedback,
		CreatedAt:      m.now().UTC(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	return rec.ID, nil
}

func (m *Memory) Read(_ context.Context, id string) (interview.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return interview.Record{}, fmt.Errorf("%w: %s", interview.ErrNotFound, id)
	}
	rec.Scores = append([]int(nil), rec.Scores...)
	rec.Justifications = append([]string(nil), rec.Justifications...)
	return rec, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

// Len reports the number of stored interviews.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
