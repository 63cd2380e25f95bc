package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	l := NewMemoryLimiter(10, time.Minute)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		d, err := l.Allow(ctx, "1.2.3.4-/api/v1/pricing")
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d", i+1)
		assert.Equal(t, 9-i, d.Remaining)
	}

	d, err := l.Allow(ctx, "1.2.3.4-/api/v1/pricing")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	// a different key is counted separately
	d, _ = l.Allow(ctx, "5.6.7.8-/api/v1/pricing")
	assert.True(t, d.Allowed)

	// the window resets after the period
	now = now.Add(time.Minute + time.Second)
	d, _ = l.Allow(ctx, "1.2.3.4-/api/v1/pricing")
	assert.True(t, d.Allowed)
	assert.Equal(t, 9, d.Remaining)
}

func TestMemoryLimiter_SweepsExpiredWindows(t *testing.T) {
	l := NewMemoryLimiter(1, time.Minute)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	_, _ = l.Allow(context.Background(), "old")
	now = now.Add(2 * time.Minute)
	l.sweep(now)

	assert.Empty(t, l.windows)
}

func setupRedisLimiter(t *testing.T, limit int) (*RedisLimiter, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLimiter(client, limit, time.Minute), mr
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	l, mr := setupRedisLimiter(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "ip-/api")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := l.Allow(ctx, "ip-/api")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Minute, mr.TTL("quote:ratelimit:ip-/api"))

	mr.FastForward(time.Minute + time.Second)

	d, err = l.Allow(ctx, "ip-/api")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisLimiter_ServerDown(t *testing.T) {
	l, mr := setupRedisLimiter(t, 3)
	mr.Close()

	_, err := l.Allow(context.Background(), "ip-/api")
	assert.Error(t, err)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	l, mr := setupRedisLimiter(t, 1)
	mr.Close()

	handler := RateLimit(l, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/pricing", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = ""
	assert.Equal(t, "unknown", clientIP(req))
}
