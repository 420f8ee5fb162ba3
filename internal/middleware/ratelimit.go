// File: internal/middleware/ratelimit.go
package middleware

import (
	"fmt"

	"operationcode_backend/internal/common"
	"operationcode_backend/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

const rateLimitPrefix = "operationcode:ratelimit"

// NewRateLimitStore keeps counters in Redis when REDIS_URL is set, so that every
// instance shares them, and in process memory otherwise.
func NewRateLimitStore(cfg *config.Config) (limiter.Store, error) {
	if cfg.RedisURL == "" {
		return memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: rateLimitPrefix}), nil
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	store, err := sredis.NewStoreWithOptions(redis.NewClient(opt), limiter.StoreOptions{Prefix: rateLimitPrefix})
	if err != nil {
		return nil, fmt.Errorf("create redis rate limit store: %w", err)
	}
	return store, nil
}

// RateLimit limits requests per client IP. rate uses the limiter format, e.g. "30-M".
func RateLimit(rate string, store limiter.Store, logger *zap.Logger) (gin.HandlerFunc, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate %q: %w", rate, err)
	}
	logger = logger.Named("rate_limit")

	return mgin.NewMiddleware(limiter.New(store, r),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			logger.Info("Rate limit reached", zap.String("ip", c.ClientIP()), zap.String("path", c.FullPath()))
			common.RespondWithError(c, common.ErrTooManyRequests)
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			logger.Error("Rate limit store failed", zap.Error(err))
			common.RespondWithError(c, common.ErrServiceUnavailable)
		}),
	), nil
}
