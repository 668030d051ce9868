package store

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rbright/parley/internal/interview"
	"github.com/rbright/parley/internal/rubric"
)

func validDraft() interview.Draft {
	return interview.Draft{
		Transcript:     "Design a product for X.\nI'd start by asking...\nGood, go on.",
		Prompt:         "Design a product for X.",
		InterviewType:  rubric.TypeProductSense,
		Scores:         []int{3, 2, 4, 1},
		Justifications: []string{"a", "b", "c", "d"},
		Feedback:       "Solid.",
	}
}

func TestMemoryCreateThenRead(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	id, err := m.Create(ctx, validDraft())
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	rec, err := m.Read(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, rec.ID)
	require.Equal(t, validDraft(), rec.Draft())
	require.False(t, rec.CreatedAt.IsZero())
}

func TestMemoryReadUnknownIsNotFound(t *testing.T) {
	_, err := NewMemory(nil).Read(context.Background(), "nope")
	require.ErrorIs(t, err, interview.ErrNotFound)
}

func TestMemoryRejectsIntegrityViolations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*interview.Draft)
		target error
	}{
		{name: "short scores", mutate: func(d *interview.Draft) { d.Scores = d.Scores[:3] }, target: interview.ErrIntegrity},
		{name: "extra justification", mutate: func(d *interview.Draft) { d.Justifications = append(d.Justifications, "e") }, target: interview.ErrIntegrity},
		{name: "empty transcript", mutate: func(d *interview.Draft) { d.Transcript = "" }, target: interview.ErrIntegrity},
		{name: "empty prompt", mutate: func(d *interview.Draft) { d.Prompt = " " }, target: interview.ErrIntegrity},
		{name: "unknown type", mutate: func(d *interview.Draft) { d.InterviewType = "system-design" }, target: interview.ErrUnknownInterviewType},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMemory(nil)
			draft := validDraft()
			tc.mutate(&draft)
			_, err := m.Create(context.Background(), draft)
			require.ErrorIs(t, err, tc.target)
			require.Zero(t, m.Len())
		})
	}
}

func TestMemoryIsolatesStoredSlices(t *testing.T) {
	m := NewMemory(nil)
	draft := validDraft()
	id, err := m.Create(context.Background(), draft)
	require.NoError(t, err)

	draft.Scores[0] = 1
	rec, err := m.Read(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 3, rec.Scores[0])

	rec.Justifications[0] = "mutated"
	again, err := m.Read(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "a", again.Justifications[0])
}

func TestMemoryConcurrentCreates(t *testing.T) {
	m := NewMemory(nil)
	var wg sync.WaitGroup
	ids := make(chan string, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := m.Create(context.Background(), validDraft())
			require.NoError(t, err)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		require.False(t, seen[id])
		seen[id] = true
	}
	require.Equal(t, 20, m.Len())
}

func TestOpenKinds(t *testing.T) {
	s, err := Open(context.Background(), KindMemory, "", nil, nil)
	require.NoError(t, err)
	require.IsType(t, &Memory{}, s)
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())

	_, err = Open(context.Background(), "sqlite", "", nil, nil)
	require.ErrorContains(t, err, `unknown store kind "sqlite"`)

	_, err = Open(context.Background(), KindPostgres, "", nil, nil)
	require.ErrorContains(t, err, "dsn is empty")
}
