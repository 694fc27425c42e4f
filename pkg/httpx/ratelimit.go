package httpx

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aixasz/AixaszSampleProject/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig is a token bucket: Requests per Window, refilling
// continuously, with up to Burst requests available at once.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Burst    int
}

// Enabled reports whether the config describes a limit at all.
func (c RateLimitConfig) Enabled() bool {
	return c.Requests > 0 && c.Window > 0
}

// Default profiles. The app overrides them from configuration.
var (
	// TokenLimit guards the token endpoint per client IP and client_id.
	TokenLimit = RateLimitConfig{Requests: 30, Window: time.Minute, Burst: 10}

	// AdminLimit guards the admin API per caller.
	AdminLimit = RateLimitConfig{Requests: 60, Window: time.Minute, Burst: 20}
)

// KeyFunc extracts the bucket key from a request.
type KeyFunc func(*http.Request) string

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the socket address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// ClientIDKey reads the OAuth client identifier from HTTP Basic auth or
// the client_id form field.
func ClientIDKey(r *http.Request) string {
	if id, _, ok := r.BasicAuth(); ok {
		return id
	}
	return FormValueKey("client_id")(r)
}

// SubjectKey buckets by the authenticated token subject.
func SubjectKey(r *http.Request) string {
	return SubjectFrom(r.Context())
}

// FormValueKey buckets by a form field (query or urlencoded body).
func FormValueKey(field string) KeyFunc {
	return func(r *http.Request) string {
		if err := r.ParseForm(); err != nil {
			return ""
		}
		return r.FormValue(field)
	}
}

// ComposeKeys joins the non-empty keys of several extractors.
func ComposeKeys(sep string, fns ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(fns))
		for _, fn := range fns {
			if k := fn(r); k != "" {
				parts = append(parts, k)
			}
		}
		return strings.Join(parts, sep)
	}
}

// RateLimiter keeps one token bucket per key. Idle buckets are swept at
// most once per sweepEvery.
type RateLimiter struct {
	cfg   RateLimitConfig
	limit rate.Limit

	mu        sync.Mutex
	buckets   map[string]*rate.Limiter
	lastSweep time.Time
}

const sweepEvery = 5 * time.Minute

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.Requests
	}
	cfg.Burst = burst
	return &RateLimiter{
		cfg:       cfg,
		limit:     rate.Limit(float64(cfg.Requests) / cfg.Window.Seconds()),
		buckets:   make(map[string]*rate.Limiter),
		lastSweep: time.Now(),
	}
}

// Allow consumes a token for key. When refused it returns how long until
// the next token is available.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	b, ok := rl.buckets[key]
	if !ok {
		b = rate.NewLimiter(rl.limit, rl.cfg.Burst)
		rl.buckets[key] = b
	}
	rl.sweepLocked()
	rl.mu.Unlock()

	if b.Allow() {
		return true, 0
	}
	res := b.Reserve()
	delay := res.Delay()
	res.Cancel()
	return false, delay
}

// sweepLocked drops buckets that have refilled completely, i.e. keys that
// have been idle for at least a full window.
func (rl *RateLimiter) sweepLocked() {
	now := time.Now()
	if now.Sub(rl.lastSweep) < sweepEvery {
		return
	}
	rl.lastSweep = now
	for k, b := range rl.buckets {
		if b.TokensAt(now) >= float64(rl.cfg.Burst) {
			delete(rl.buckets, k)
		}
	}
}

// Middleware enforces the limit per key. Requests whose key cannot be
// determined pass through. Refusals get an OAuth-style JSON body.
func (rl *RateLimiter) Middleware(key KeyFunc) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			ok, delay := rl.Allow(k)
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := max(int(delay.Seconds()), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Requests))
			w.Header().Set("X-RateLimit-Window", rl.cfg.Window.String())

			slogx.FromContext(r.Context()).Warn("rate limit exceeded",
				"key", k,
				"endpoint", r.URL.Path,
				"retry_after", retryAfter,
			)

			WriteJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":             "slow_down",
				"error_description": "Too many requests. Please try again later.",
			})
		})
	}
}

// RateLimit is shorthand for NewRateLimiter(cfg).Middleware(key). A
// disabled config yields a pass-through middleware.
func RateLimit(cfg RateLimitConfig, key KeyFunc) Middleware {
	if !cfg.Enabled() {
		return func(next http.Handler) http.Handler { return next }
	}
	return NewRateLimiter(cfg).Middleware(key)
}
