package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPurger struct {
	before time.Time
	n      int64
	err    error
	calls  int
}

func (m *mockPurger) DeleteProcessedEvents(_ context.Context, before time.Time) (int64, error) {
	m.calls++
	m.before = before
	return m.n, m.err
}

func TestOutboxCleaner_PurgeUsesRetention(t *testing.T) {
	repo := &mockPurger{n: 3}
	c, err := NewOutboxCleaner(repo, "@daily", 48*time.Hour, nil)
	require.NoError(t, err)

	now := time.Date(2026, 3, 14, 4, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	assert.EqualValues(t, 3, c.purge())
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, now.Add(-48*time.Hour), repo.before)
}

func TestOutboxCleaner_PurgeError(t *testing.T) {
	repo := &mockPurger{err: errors.New("db down")}
	c, err := NewOutboxCleaner(repo, "@every 1h", 0, nil)
	require.NoError(t, err)

	assert.Zero(t, c.purge())
	assert.Equal(t, 7*24*time.Hour, c.retention)
}

func TestOutboxCleaner_InvalidSchedule(t *testing.T) {
	_, err := NewOutboxCleaner(&mockPurger{}, "every day at noon", time.Hour, nil)
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestOutboxCleaner_StartStop(t *testing.T) {
	c, err := NewOutboxCleaner(&mockPurger{}, "0 3 * * *", time.Hour, nil)
	require.NoError(t, err)

	c.Start()
	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleaner did not stop")
	}
}
