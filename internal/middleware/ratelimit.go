package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/AnshRaj112/ura-storage-backend/pkg/clientip"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting
	RateLimitKeyPrefix = "ratelimit:"
	// BlockedIPKeyPrefix is the Redis key prefix for blocked IPs
	BlockedIPKeyPrefix = "blocked_ip:"
)

// RedisRateLimiter is a fixed-window counter per IP shared by every instance.
// An IP that goes over the limit is blocked for BlockFor.
type RedisRateLimiter struct {
	client      *redis.Client
	Window      time.Duration
	MaxRequests int
	BlockFor    time.Duration
}

func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:      client,
		Window:      2 * time.Minute,
		MaxRequests: 120,
		BlockFor:    15 * time.Minute,
	}
}

// Middleware fails open: when Redis is unreachable the request goes through.
func (l *RedisRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := clientip.RealClientIP(r)
		blockedKey := BlockedIPKeyPrefix + ip

		blocked, err := l.client.Exists(ctx, blockedKey).Result()
		if err == nil && blocked > 0 {
			writeJSONError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			return
		}

		counterKey := RateLimitKeyPrefix + ip
		count, err := l.client.Incr(ctx, counterKey).Result()
		if err != nil {
			log.Warn().Err(err).Str("ip", ip).Msg("rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			l.client.Expire(ctx, counterKey, l.Window)
		}

		if count > int64(l.MaxRequests) {
			if err := l.client.Set(ctx, blockedKey, "1", l.BlockFor).Err(); err != nil {
				log.Warn().Err(err).Str("ip", ip).Msg("blocking ip")
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(l.BlockFor.Seconds())))
			writeJSONError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.MaxRequests))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(int64(l.MaxRequests)-count, 10))
		next.ServeHTTP(w, r)
	})
}
