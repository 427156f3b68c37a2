package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hookupza/apiserver/internal/logging"
	"github.com/redis/go-redis/v9"
)

const (
	rateLimitWindow  = time.Minute
	rateLimitTimeout = 2 * time.Second
)

// RateLimiter is a fixed-window per-IP counter kept in Redis. A nil
// *RateLimiter lets every request through.
type RateLimiter struct {
	client    *redis.Client
	perMinute int64
	logger    *slog.Logger
}

func NewRateLimiter(client *redis.Client, perMinute int, logger *slog.Logger) *RateLimiter {
	if client == nil {
		return nil
	}
	if perMinute <= 0 {
		perMinute = 10
	}
	return &RateLimiter{
		client:    client,
		perMinute: int64(perMinute),
		logger:    logging.Resolve(logger),
	}
}

// Limit throttles the named endpoint. Redis errors fail open.
func (l *RateLimiter) Limit(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("ratelimit:%s:%s", scope, clientIP(r))

			count, err := l.hit(r.Context(), key)
			if err != nil {
				l.logger.WarnContext(r.Context(), "rate limit check failed", "scope", scope, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if count > l.perMinute {
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// hit counts one request against key. The window is created with its TTL
// and incremented in a single MULTI, so a counter never outlives its window.
// A departing client does not cancel the commands.
func (l *RateLimiter) hit(ctx context.Context, key string) (int64, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rateLimitTimeout)
	defer cancel()

	var incr *redis.IntCmd
	if _, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, rateLimitWindow)
		incr = pipe.Incr(ctx, key)
		return nil
	}); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// clientIP relies on middleware.RealIP having rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
