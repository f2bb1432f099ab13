package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

type fakeValidator struct {
	sessions map[string]string
	err      error
}

func (v fakeValidator) ValidateSession(_ context.Context, token string) (string, bool, error) {
	if v.err != nil {
		return "", false, v.err
	}
	key, ok := v.sessions[token]
	return key, ok, nil
}

func TestRequireSession(t *testing.T) {
	v := fakeValidator{sessions: map[string]string{"good": "123456"}}

	var seen string
	h := RequireSession(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = AccountKeyFromContext(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer good", http.StatusOK},
		{"lowercase scheme", "bearer good", http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/account", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "123456", seen)
			} else {
				assert.Contains(t, rec.Body.String(), `"success":false`)
			}
		})
	}

	t.Run("store down", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/account", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		RequireSession(fakeValidator{err: errors.New("redis down")})(okHandler).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestAccountKeyFromContext_Empty(t *testing.T) {
	_, ok := AccountKeyFromContext(context.Background())
	assert.False(t, ok)
}

func TestIPLimiters(t *testing.T) {
	l := NewIPLimiters(rate.Every(time.Hour), 2)
	h := l.Limit(CredentialPaths, "slow down")(okHandler)

	call := func(path, remote string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("/api/safety/unlock", "10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, call("/api/safety/unlock", "10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, call("/api/auth/login", "10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, call("/api/auth/login", "10.0.0.2:1000"))
	assert.Equal(t, http.StatusOK, call("/api/diary", "10.0.0.1:1003"))

	l.sweep(time.Now().Add(2 * limiterTTL))
	assert.Equal(t, http.StatusOK, call("/api/auth/login", "10.0.0.1:1004"))
}

func TestHostCheck(t *testing.T) {
	h := HostCheck("api.example.com")(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Host = "API.example.com:443"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req.Host = "evil.example.com"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get(headerXContentTypeOptions))
	assert.Equal(t, "DENY", rec.Header().Get(headerXFrameOptions))
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://app.example.com"})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/diary", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/diary", nil)
	req.Header.Set("Origin", "https://other.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRedisRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedisRateLimiter(client)
	l.MaxRequests = 3
	h := l.Middleware(okHandler)

	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/account", nil)
		req.RemoteAddr = "10.1.1.1:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, call().Code)
	}
	rec := call()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.True(t, mr.Exists(BlockedIPKeyPrefix+"10.1.1.1"))

	mr.FastForward(l.BlockFor + l.Window + time.Second)
	assert.Equal(t, http.StatusOK, call().Code)

	mr.Close()
	assert.Equal(t, http.StatusOK, call().Code, "fails open")
}
