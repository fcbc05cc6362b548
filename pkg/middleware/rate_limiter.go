package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/educonnect/service-booking/pkg/response"
)

// limiterStore holds one token bucket per client key.
type limiterStore struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    rate.Limit
	burst    int
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func (s *limiterStore) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[key] = e
	}
	e.lastSeen = now

	// Opportunistic cleanup keeps the map from growing without bound.
	if len(s.limiters) > 10000 {
		for k, v := range s.limiters {
			if now.Sub(v.lastSeen) > 10*time.Minute {
				delete(s.limiters, k)
			}
		}
	}
	return e.limiter
}

// RateLimitMiddleware limits requests per authenticated user, falling back to client IP.
// perMinute is the sustained rate and burst the bucket size.
func RateLimitMiddleware(perMinute, burst int, log *zap.Logger) gin.HandlerFunc {
	store := &limiterStore{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
	}

	return func(c *gin.Context) {
		key := c.ClientIP()
		if id, ok := GetUserID(c); ok {
			key = id.String()
		}

		if !store.get(key, time.Now()).Allow() {
			log.Warn("rate limit exceeded", zap.String("key", key), zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.Envelope{
				Error: &response.ErrorBody{Code: "RATE_LIMITED", Message: "rate limit exceeded, try again later"},
			})
			return
		}
		c.Next()
	}
}
