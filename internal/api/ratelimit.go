package api

import (
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/ignite/sendtime-scheduler/internal/metrics"
	"github.com/ignite/sendtime-scheduler/internal/pkg/httputil"
)

// DefaultLimiterIdleTTL is how long a client's bucket survives without
// requests.
const DefaultLimiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanoseconds
}

// ClientRateLimiter keeps one token bucket per client address. Buckets idle
// for longer than the idle TTL are dropped on the next sweep, which runs at
// most once per TTL on the request path.
type ClientRateLimiter struct {
	limiters  map[string]*clientLimiter
	mu        sync.RWMutex
	rate      rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewClientRateLimiter creates a limiter allowing rps requests per second per
// client with the given burst. A non-positive rps returns nil, which disables
// limiting.
func NewClientRateLimiter(rps float64, burst int) *ClientRateLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = int(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &ClientRateLimiter{
		limiters:  make(map[string]*clientLimiter),
		rate:      rate.Limit(rps),
		burst:     burst,
		idleTTL:   DefaultLimiterIdleTTL,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// GetLimiter returns the limiter for a client, creating it on first use.
func (rl *ClientRateLimiter) GetLimiter(client string) *rate.Limiter {
	now := rl.now()

	rl.mu.RLock()
	cl, exists := rl.limiters[client]
	sweepDue := now.Sub(rl.lastSweep) >= rl.idleTTL
	rl.mu.RUnlock()

	if !exists || sweepDue {
		rl.mu.Lock()
		// Double-check after acquiring write lock
		if now.Sub(rl.lastSweep) >= rl.idleTTL {
			rl.sweepLocked(now)
		}
		cl, exists = rl.limiters[client]
		if !exists {
			cl = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
			rl.limiters[client] = cl
		}
		rl.mu.Unlock()
	}

	cl.lastSeen.Store(now.UnixNano())
	return cl.limiter
}

// sweepLocked drops idle buckets. The caller holds the write lock.
func (rl *ClientRateLimiter) sweepLocked(now time.Time) {
	for client, cl := range rl.limiters {
		if now.Sub(time.Unix(0, cl.lastSeen.Load())) >= rl.idleTTL {
			delete(rl.limiters, client)
		}
	}
	rl.lastSweep = now
}

// Len returns the number of tracked clients.
func (rl *ClientRateLimiter) Len() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.limiters)
}

// Middleware rejects requests over the client's budget with 429.
func (rl *ClientRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.GetLimiter(clientKey(r)).Allow() {
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			metrics.RateLimited.WithLabelValues(route).Inc()
			httputil.TooManyRequests(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey is the caller's IP. RealIP has already rewritten RemoteAddr.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
