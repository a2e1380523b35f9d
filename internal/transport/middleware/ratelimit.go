package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/civic-report/internal"
	"github.com/frahmantamala/civic-report/internal/transport"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRateLimitPrefix = "ratelimit:issues"
	rateLimitWindow        = 24 * time.Hour
)

// IssueRateLimiter caps how many issues one user may submit per day. Counters
// live in Redis under <prefix>:<user id> and expire a day after the first hit.
type IssueRateLimiter struct {
	*transport.BaseHandler
	client *redis.Client
	limit  int
	prefix string
	window time.Duration
	logger *slog.Logger
}

func NewIssueRateLimiter(client *redis.Client, cfg internal.RateLimitConfig, logger *slog.Logger) *IssueRateLimiter {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultRateLimitPrefix
	}
	return &IssueRateLimiter{
		BaseHandler: transport.NewBaseHandler(logger),
		client:      client,
		limit:       cfg.IssuesPerDay,
		prefix:      prefix,
		window:      rateLimitWindow,
		logger:      logger,
	}
}

// Limit must run after authentication. A zero limit or a missing Redis
// client disables it; Redis errors let the request through. A slot is taken
// before the handler runs and given back unless the submission succeeded.
func (l *IssueRateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.limit <= 0 || l.client == nil {
			next.ServeHTTP(w, r)
			return
		}

		identity, ok := internal.IdentityFromContext(r.Context())
		if !ok {
			l.WriteAppError(w, internal.ErrMissingToken)
			return
		}

		ctx := r.Context()
		key := fmt.Sprintf("%s:%d", l.prefix, identity.UserID)

		count, err := l.reserve(ctx, key)
		if err != nil {
			l.logger.WarnContext(ctx, "rate limiter unavailable, allowing request", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		if count > int64(l.limit) {
			l.release(ctx, key)
			retryAfter, _ := l.client.TTL(ctx, key).Result()
			if retryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			}
			l.logger.WarnContext(ctx, "issue submission rate limited",
				"user_id", identity.UserID,
				"count", count-1,
				"limit", l.limit)
			l.WriteAppError(w, internal.NewTooManyRequestsError(
				fmt.Sprintf("You can submit at most %d issues per day", l.limit)))
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		if rw.statusCode < 200 || rw.statusCode >= 300 {
			l.release(context.WithoutCancel(ctx), key)
		}
	})
}

// reserve counts one submission. The key and its window are created in the
// same transaction as the increment, so a counter never outlives its window.
func (l *IssueRateLimiter) reserve(ctx context.Context, key string) (int64, error) {
	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, l.window)
		incr = pipe.Incr(ctx, key)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (l *IssueRateLimiter) release(ctx context.Context, key string) {
	if err := l.client.Decr(ctx, key).Err(); err != nil {
		l.logger.WarnContext(ctx, "failed to release rate limit slot", "key", key, "error", err)
	}
}
