package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/AnshRaj112/ura-storage-backend/internal/models"
	"github.com/AnshRaj112/ura-storage-backend/pkg/clientip"
	"golang.org/x/time/rate"
)

const (
	headerXContentTypeOptions     = "X-Content-Type-Options"
	headerXFrameOptions           = "X-Frame-Options"
	headerContentSecurityPolicy   = "Content-Security-Policy"
	headerStrictTransportSecurity = "Strict-Transport-Security"
	headerReferrerPolicy          = "Referrer-Policy"
)

// SecurityHeaders sets security-related response headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerXContentTypeOptions, "nosniff")
		w.Header().Set(headerXFrameOptions, "DENY")
		w.Header().Set(headerContentSecurityPolicy, "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set(headerStrictTransportSecurity, "max-age=31536000; includeSubDomains")
		w.Header().Set(headerReferrerPolicy, "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// HostCheck returns 403 when r.Host does not match allowedHost (bare hostname, no scheme or port).
func HostCheck(allowedHost string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowedHost == "" {
				next.ServeHTTP(w, r)
				return
			}
			reqHost := r.Host
			if host, _, err := net.SplitHostPort(reqHost); err == nil {
				reqHost = host
			}
			if !strings.EqualFold(strings.TrimSpace(reqHost), strings.TrimSpace(allowedHost)) {
				writeJSONError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IPLimiters hands out one token bucket per client IP and forgets idle ones.
type IPLimiters struct {
	limit rate.Limit
	burst int
	ttl   time.Duration

	mu      sync.Mutex
	entries map[string]*limiterEntry
	once    sync.Once
}

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterTTL             = 30 * time.Minute
)

func NewIPLimiters(limit rate.Limit, burst int) *IPLimiters {
	return &IPLimiters{
		limit:   limit,
		burst:   burst,
		ttl:     limiterTTL,
		entries: make(map[string]*limiterEntry),
	}
}

// Allow reports whether ip may make a request now.
func (l *IPLimiters) Allow(ip string) bool {
	l.once.Do(func() { go l.cleanupLoop() })

	l.mu.Lock()
	e, ok := l.entries[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[ip] = e
	}
	e.lastUse = time.Now()
	l.mu.Unlock()

	return e.limiter.Allow()
}

func (l *IPLimiters) cleanupLoop() {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()
	for range ticker.C {
		l.sweep(time.Now())
	}
}

func (l *IPLimiters) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, e := range l.entries {
		if now.Sub(e.lastUse) > l.ttl {
			delete(l.entries, ip)
		}
	}
}

// Limit wraps next; paths restricts the limiter to those exact paths (nil means every path).
func (l *IPLimiters) Limit(paths map[string]bool, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if paths != nil && !paths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			if !l.Allow(clientip.RealClientIP(r)) {
				writeJSONError(w, http.StatusTooManyRequests, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CredentialPaths are the routes that accept an identifier or an unlock code.
var CredentialPaths = map[string]bool{
	"/api/auth/login":           true,
	"/api/auth/login-or-create": true,
	"/api/safety/unlock":        true,
}

// ProductionSecurity returns middlewares for production:
// SecurityHeaders, HostCheck, a global per-IP limit (2/s, burst 20) and a
// credential limit (1 per 5s, burst 3) on CredentialPaths.
func ProductionSecurity(allowedHost string) []func(http.Handler) http.Handler {
	global := NewIPLimiters(rate.Limit(2), 20)
	credentials := NewIPLimiters(rate.Every(5*time.Second), 3)

	return []func(http.Handler) http.Handler{
		SecurityHeaders,
		HostCheck(allowedHost),
		global.Limit(nil, "Too many requests. Please slow down."),
		credentials.Limit(CredentialPaths, "Too many attempts. Please try again later."),
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.Result{Success: false, Message: message})
}
