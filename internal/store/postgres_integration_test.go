//go:build integration

package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/parley/internal/interview"
)

func TestPostgresCreateReadIntegration(t *testing.T) {
	dsn := os.Getenv("PARLEY_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("PARLEY_TEST_DATABASE_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p, err := OpenPostgres(ctx, dsn, nil, nil)
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.Ping(ctx))

	id, err := p.Create(ctx, validDraft())
	require.NoError(t, err)

	rec, err := p.Read(ctx, id)
	require.NoError(t, err)
	require.Equal(t, validDraft(), rec.Draft())

	_, err = p.Read(ctx, "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, interview.ErrNotFound)
	_, err = p.Read(ctx, "not-a-uuid")
	require.ErrorIs(t, err, interview.ErrNotFound)
}
