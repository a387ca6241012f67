package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/seamed/tracker/pkg/auth"
	"github.com/seamed/tracker/pkg/httputil"
	"github.com/seamed/tracker/pkg/observability"
)

// Limiter decides whether a keyed request may proceed. Implementations that
// depend on a remote store return true together with the error when the store
// is unreachable.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// remainingReporter is implemented by limiters that can report the budget
// left for a key
type remainingReporter interface {
	Remaining(ctx context.Context, key string) (int, error)
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalRateLimiter keeps one token bucket per key in process memory
type LocalRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

// NewLocalRateLimiter creates a limiter refilling rps tokens per second up to burst
func NewLocalRateLimiter(rps float64, burst int) *LocalRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &LocalRateLimiter{
		entries: make(map[string]*limiterEntry),
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: 5 * time.Minute,
		now:     time.Now,
	}
}

// Allow consumes one token for key
func (l *LocalRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()

	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = entry
	}
	entry.lastSeen = now
	l.mu.Unlock()

	return entry.limiter.AllowN(now, 1), nil
}

// Len returns the number of tracked keys
func (l *LocalRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Cleanup drops buckets idle for longer than the TTL
func (l *LocalRateLimiter) Cleanup() {
	cutoff := l.now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, entry := range l.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}

// StartCleanup runs Cleanup every interval until ctx is done
func (l *LocalRateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// RateLimitMiddleware rejects callers that exceed their limit with 429. It
// runs behind the gateway and keys on the authenticated subject, falling back
// to the client address.
type RateLimitMiddleware struct {
	limiter Limiter
	metrics *observability.Metrics
	audit   *auth.AuditLogger
}

// NewRateLimitMiddleware creates the middleware. metrics and audit may be nil.
func NewRateLimitMiddleware(limiter Limiter, metrics *observability.Metrics, audit *auth.AuditLogger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		metrics: metrics,
		audit:   audit,
	}
}

// Handler wraps an HTTP handler with rate limiting
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, subject := rateLimitKey(r)

		allowed, err := m.limiter.Allow(r.Context(), key)
		if err != nil {
			observability.FromContext(r.Context()).WithError(err).Warn("rate limiter unavailable, allowing request")
		}
		if !allowed {
			if m.metrics != nil {
				m.metrics.RateLimitedTotal.Inc()
			}
			m.audit.LogFromRequest(r, auth.AuditEvent{
				Action:  auth.ActionRateLimitExceeded,
				Status:  auth.StatusDenied,
				Subject: subject,
			})
			w.Header().Set("Retry-After", "1")
			w.Header().Set("X-RateLimit-Remaining", "0")
			httputil.WriteTooManyRequests(w, "Too many requests")
			return
		}

		if reporter, ok := m.limiter.(remainingReporter); ok && err == nil {
			if remaining, rerr := reporter.Remaining(r.Context(), key); rerr == nil {
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			}
		}

		next.ServeHTTP(w, r)
	})
}

func rateLimitKey(r *http.Request) (key, subject string) {
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		return "user:" + identity.Subject, identity.Subject
	}
	return "ip:" + remoteHost(r), ""
}

func remoteHost(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
