package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ActivationGuard throttles key-validation attempts per client IP with
// an in-process token bucket. It guards against brute-forcing license
// keys and is independent of the store-backed free-tier limiter.
type ActivationGuard struct {
	mu      sync.Mutex
	buckets map[string]*guardEntry

	rps      rate.Limit
	burst    int
	idleTTL  time.Duration
	identity IdentityFunc
	logger   *slog.Logger
}

type guardEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewActivationGuard(rps float64, burst int, identity IdentityFunc, logger *slog.Logger) *ActivationGuard {
	return &ActivationGuard{
		buckets:  make(map[string]*guardEntry),
		rps:      rate.Limit(rps),
		burst:    burst,
		idleTTL:  15 * time.Minute,
		identity: identity,
		logger:   logger,
	}
}

func (g *ActivationGuard) allow(key string) bool {
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	ent, ok := g.buckets[key]
	if !ok {
		ent = &guardEntry{lim: rate.NewLimiter(g.rps, g.burst)}
		g.buckets[key] = ent
	}
	ent.lastSeen = now
	return ent.lim.Allow()
}

// Cleanup drops buckets idle longer than the idle TTL.
func (g *ActivationGuard) Cleanup() {
	cutoff := time.Now().Add(-g.idleTTL)

	g.mu.Lock()
	defer g.mu.Unlock()

	for k, ent := range g.buckets {
		if ent.lastSeen.Before(cutoff) {
			delete(g.buckets, k)
		}
	}
}

// StartJanitor prunes idle buckets until the context is cancelled.
func (g *ActivationGuard) StartJanitor(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				g.Cleanup()
			}
		}
	}()
}

// Handler rejects over-rate callers with 429 before the registry is
// ever consulted.
func (g *ActivationGuard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := g.identity(r)

		if !g.allow(key) {
			g.logger.WarnContext(r.Context(), "activation attempts throttled",
				"method", r.Method,
				"path", r.URL.Path,
			)

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"success":false,"error":"Too many activation attempts. Please try again later."}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
