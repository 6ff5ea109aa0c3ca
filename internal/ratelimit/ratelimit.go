package ratelimit

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	bucketCleanupThreshold = 1 * time.Hour
	cleanupInterval        = 30 * time.Minute
)

// Limiter decides whether another request for key is allowed in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// Memory is a per-process limiter that refills each key's bucket once per window.
type Memory struct {
	mu          sync.Mutex
	capacity    int
	window      time.Duration
	buckets     map[string]*bucket
	now         func() time.Time
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewMemory starts a Memory limiter allowing capacity requests per window.
// Call Stop to release the cleanup goroutine.
func NewMemory(capacity int, window time.Duration) *Memory {
	m := &Memory{
		capacity:    capacity,
		window:      window,
		buckets:     make(map[string]*bucket),
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

func (m *Memory) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stopCleanup:
			return
		}
	}
}

func (m *Memory) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, b := range m.buckets {
		if now.Sub(b.lastRefill) > bucketCleanupThreshold {
			delete(m.buckets, key)
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (m *Memory) Stop() {
	m.stopOnce.Do(func() { close(m.stopCleanup) })
}

func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	b, exists := m.buckets[key]
	if !exists {
		m.buckets[key] = &bucket{tokens: m.capacity - 1, lastRefill: now}
		return true, nil
	}

	if now.Sub(b.lastRefill) >= m.window {
		b.tokens = m.capacity
		b.lastRefill = now
	}

	if b.tokens <= 0 {
		return false, nil
	}

	b.tokens--
	return true, nil
}

// Middleware rejects requests over the limit with 429, keyed by the IP of
// r.RemoteAddr. Forwarded headers are not read here; a trusted proxy setup
// rewrites RemoteAddr upstream. Limiter errors are logged and the request is let through.
func Middleware(limiter Limiter, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			allowed, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				logger.Warn("rate limiter unavailable", zap.String("remote_ip", ip), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
