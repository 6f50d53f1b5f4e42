package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/regscout/regscout/internal/config"
	"github.com/regscout/regscout/pkg/httpext"
	"github.com/regscout/regscout/pkg/logger"
	"github.com/regscout/regscout/pkg/ratelimit"
)

// sweepEvery is how many requests pass between purges of idle clients.
const sweepEvery = 1000

// Limiter applies one request budget to callers identified by key. The
// same Limiter can back several routes so they share a budget.
type Limiter struct {
	enabled  bool
	limiter  *ratelimit.Limiter
	requests atomic.Uint64
}

// NewLimiter allows maxHits requests per key within cfg.Window. A disabled
// config lets everything through.
func NewLimiter(cfg config.RateLimitConfig, maxHits int) *Limiter {
	return &Limiter{
		enabled: cfg.Enabled,
		limiter: ratelimit.NewLimiter(cfg.Window, maxHits),
	}
}

// Allow records a hit for key. When the budget is spent it reports how long
// the caller should wait.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	if !l.enabled {
		return true, 0
	}
	if l.requests.Add(1)%sweepEvery == 0 {
		l.limiter.Sweep()
	}
	return l.limiter.Allow(key)
}

// Middleware rejects requests over budget with 429 and a Retry-After header.
func (l *Limiter) Middleware(limitKey string) func(http.Handler) http.Handler {
	log := logger.For(logger.MIDDLEWARE)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			allowed, retryAfter := l.Allow(key)
			if !allowed {
				log.Warn().
					Str("client", key).
					Str("limit", limitKey).
					Dur("retry_after", retryAfter).
					Msg("Rate limit exceeded")
				w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds(retryAfter)))
				httpext.JsonError(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit limits requests per session, falling back to the client address
// for requests that carry none.
func RateLimit(cfg config.RateLimitConfig, limitKey string) func(http.Handler) http.Handler {
	return NewLimiter(cfg, cfg.Chat).Middleware(limitKey)
}

// SessionKey is the limiter key for a session.
func SessionKey(sessionID string) string {
	return "session:" + sessionID
}

// RetryAfterSeconds rounds a wait up to whole seconds.
func RetryAfterSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

func clientKey(r *http.Request) string {
	if sess, ok := SessionFromContext(r.Context()); ok {
		return SessionKey(sess.ID)
	}

	// Use the first X-Forwarded-For hop if behind proxy, otherwise the remote
	// address without its port
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return "ip:" + strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
