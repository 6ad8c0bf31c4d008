package httpserver

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/fdg312/fitclub/internal/config"
	"github.com/fdg312/fitclub/internal/metrics"
)

const (
	limiterIdleTTL    = 10 * time.Minute
	limiterSweepEvery = 1000
)

// clientBucket is the token bucket of one client address.
type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter hands out a token bucket per client and forgets idle clients.
type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	rps     rate.Limit
	burst   int
	calls   int
	now     func() time.Time
}

func newRateLimiter(rps, burst int) *rateLimiter {
	if burst <= 0 {
		burst = rps
	}
	return &rateLimiter{
		clients: make(map[string]*clientBucket),
		rps:     rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
	}
}

// allow takes one token for key. When the bucket is empty it returns the
// delay after which the next request would pass.
func (l *rateLimiter) allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.clients[key]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[key] = b
	}
	b.lastSeen = now

	l.calls++
	if l.calls%limiterSweepEvery == 0 {
		l.sweep(now)
	}

	res := b.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// sweep drops buckets not touched for limiterIdleTTL. Caller holds mu.
func (l *rateLimiter) sweep(now time.Time) {
	for key, b := range l.clients {
		if now.Sub(b.lastSeen) > limiterIdleTTL {
			delete(l.clients, key)
		}
	}
}

func (l *rateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// RateLimitMiddleware ограничивает частоту запросов с одного адреса.
// При RateLimitRPS <= 0 middleware ничего не делает.
// /healthz, /metrics и preflight запросы не лимитируются.
// Заголовки прокси учитываются только при TrustProxy.
func RateLimitMiddleware(cfg *config.Config, logger logrus.FieldLogger, m *metrics.Metrics, next http.Handler) http.Handler {
	if cfg.RateLimitRPS <= 0 {
		return next
	}
	return rateLimitHandler(newRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst), cfg.TrustProxy, logger, m, next)
}

func rateLimitHandler(limiter *rateLimiter, trustProxy bool, logger logrus.FieldLogger, m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r, trustProxy)
		ok, retryAfter := limiter.allow(ip)
		if ok {
			next.ServeHTTP(w, r)
			return
		}

		m.RateLimited(r.URL.Path)
		logger.WithFields(logrus.Fields{
			"ip":     ip,
			"method": r.Method,
			"path":   r.URL.Path,
		}).Debug("rate limited")

		seconds := int(math.Ceil(retryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{
				"code":    "rate_limited",
				"message": "Too many requests",
			},
		})
	})
}

// clientIP returns the peer address. Behind a trusted proxy it prefers the
// first X-Forwarded-For hop, then X-Real-IP.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
