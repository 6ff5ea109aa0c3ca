package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAllowsCapacityThenRefills(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2, time.Minute)
	defer m.Stop()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		ok, err := m.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.Truef(t, ok, "request %d should be allowed", i)
	}

	ok, err := m.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok, "third request in the window should be denied")

	ok, err = m.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, ok, "other keys have their own bucket")

	now = now.Add(time.Minute)
	ok, err = m.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok, "bucket refills after the window")
}

func TestMemoryCleanupDropsIdleBuckets(t *testing.T) {
	m := NewMemory(1, time.Minute)
	defer m.Stop()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	_, _ = m.Allow(context.Background(), "idle")

	now = now.Add(2 * time.Hour)
	m.cleanup()

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Empty(t, m.buckets)
}

func TestMemoryStopIsIdempotent(t *testing.T) {
	m := NewMemory(1, time.Minute)
	m.Stop()
	m.Stop()
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis unreachable")
}

func TestMiddleware(t *testing.T) {
	m := NewMemory(1, time.Hour)
	defer m.Stop()

	handler := Middleware(m, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/calculator", nil))
	assert.Equal(t, http.StatusNoContent, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/calculator", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestMiddlewareFailsOpen(t *testing.T) {
	handler := Middleware(failingLimiter{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestMiddlewareKeysOnSocketAddress(t *testing.T) {
	m := NewMemory(2, time.Hour)
	defer m.Stop()

	handler := Middleware(m, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	var rejected int
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "192.0.2.10:" + strconv.Itoa(40000+i)
		req.Header.Set("X-Forwarded-For", "203.0.113."+strconv.Itoa(i))
		req.Header.Set("X-Real-IP", "198.51.100."+strconv.Itoa(i))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			rejected++
		}
	}

	assert.Equal(t, 18, rejected, "spoofed headers and source ports must share one bucket")
	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Len(t, m.buckets, 1)
}
