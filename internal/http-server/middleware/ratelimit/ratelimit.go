package ratelimit

import (
	"appointment-service/pkg/response"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per client IP.
type Limiter struct {
	mu         sync.Mutex
	visitors   map[string]*visitor
	rps        rate.Limit
	burst      int
	idle       time.Duration
	sweepEvery time.Duration
	lastSweep  time.Time
}

func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{
		visitors:   make(map[string]*visitor),
		rps:        rate.Limit(rps),
		burst:      burst,
		idle:       10 * time.Minute,
		sweepEvery: time.Minute,
	}
}

func (l *Limiter) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now

	if now.Sub(l.lastSweep) >= l.sweepEvery {
		l.sweep(now)
	}

	return v.limiter
}

// sweep drops buckets of clients that went quiet. Caller holds l.mu.
func (l *Limiter) sweep(now time.Time) {
	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idle {
			delete(l.visitors, k)
		}
	}
	l.lastSweep = now
}

func (l *Limiter) Middleware(log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !l.get(ip, time.Now()).Allow() {
				log.Warn("rate limit exceeded", slog.String("ip", ip))
				w.WriteHeader(http.StatusTooManyRequests)
				render.JSON(w, r, response.Error(response.TOO_MANY_REQUESTS, "rate limit exceeded, try again later"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
