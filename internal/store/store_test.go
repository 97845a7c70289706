package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func result(id string, at time.Time) GameResult {
	return GameResult{
		SessionID:   id,
		Players:     [2]string{"alice", "bob"},
		Stats:       [2]PlayerStats{{TurnsPlayed: 3, Hits: 9, Misses: 4, Clicks: 13}, {TurnsPlayed: 3, Hits: 5, Misses: 2, Clicks: 7}},
		Levels:      4,
		Turns:       4,
		CompletedAt: at,
	}
}

func TestMemory_RecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.SaveResult(ctx, result("a", t0)))
	require.NoError(t, m.SaveResult(ctx, result("b", t0.Add(time.Minute))))
	require.NoError(t, m.SaveResult(ctx, result("c", t0.Add(-time.Minute))))

	got, err := m.RecentResults(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].SessionID)
	assert.Equal(t, "a", got[1].SessionID)

	all, _ := m.RecentResults(ctx, 0)
	assert.Len(t, all, 3)

	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.SaveResult(ctx, result("d", t0)), ErrClosed)
}

func TestRecorder_SavesSubmittedResults(t *testing.T) {
	m := NewMemory()
	rec := NewRecorder(m, zaptest.NewLogger(t), 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx) }()

	rec.Submit(result("a", t0))
	rec.Submit(result("b", t0.Add(time.Second)))

	require.Eventually(t, func() bool {
		got, _ := m.RecentResults(context.Background(), 0)
		return len(got) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestRecorder_DrainsOnShutdown(t *testing.T) {
	m := NewMemory()
	rec := NewRecorder(m, zaptest.NewLogger(t), 4)
	rec.Submit(result("a", t0))
	rec.Submit(result("b", t0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, rec.Run(ctx))

	got, _ := m.RecentResults(context.Background(), 0)
	assert.Len(t, got, 2)
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	m := NewMemory()
	rec := NewRecorder(m, zaptest.NewLogger(t), 1)
	rec.Submit(result("a", t0))
	rec.Submit(result("b", t0)) // dropped, nobody is draining

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, rec.Run(ctx))

	got, _ := m.RecentResults(context.Background(), 0)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].SessionID)
}

func TestRecordRoundTrip(t *testing.T) {
	r := result("a", t0)
	assert.Equal(t, r, recordOf(r).result())
}

// Runs against a real database only when SPOTSHOT_TEST_DATABASE_URL is set.
func TestPostgres_SaveAndList(t *testing.T) {
	dsn := os.Getenv("SPOTSHOT_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("SPOTSHOT_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	p, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	defer p.Close()

	id := "test-" + time.Now().Format("150405.000000")
	require.NoError(t, p.SaveResult(ctx, result(id, time.Now())))

	got, err := p.RecentResults(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].SessionID)
	assert.Equal(t, "alice", got[0].Players[0])
}
