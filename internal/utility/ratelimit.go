package utility

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per key. The least recently seen keys
// are evicted once maxKeys is reached.
type RateLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

// NewRateLimiter allows perMinute events per key with a burst of the same
// size. perMinute <= 0 disables limiting.
func NewRateLimiter(perMinute, maxKeys int) (*RateLimiter, error) {
	cache, err := lru.New[string, *rate.Limiter](maxKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to create limiter cache: %w", err)
	}
	rl := &RateLimiter{limiters: cache, burst: perMinute}
	if perMinute > 0 {
		rl.limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return rl, nil
}

func (l *RateLimiter) Allow(key string) bool {
	if l.burst <= 0 {
		return true
	}
	l.mu.Lock()
	lim, ok := l.limiters.Get(key)
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters.Add(key, lim)
	}
	l.mu.Unlock()
	return lim.Allow()
}

// Middleware limits requests by the authenticated user, falling back to the client IP.
func (l *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, err := GetUserIDFromContext(c)
			if err != nil {
				key = "ip:" + GetRealIP(c)
			}
			if !l.Allow(key) {
				GetLogger(c).Warn().Str("key", key).Msg("Rate limit exceeded")
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many requests, please slow down"})
			}
			return next(c)
		}
	}
}
