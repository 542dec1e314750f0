package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// LoginRateLimit limits login attempts per email or IP. With Redis the window
// is shared across instances; without it each process keeps a token bucket
// per key.
func LoginRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	local := newLocalLimiter(maxPerMin)
	return func(c *fiber.Ctx) error {
		var req struct {
			Email string `json:"email"`
		}
		_ = c.BodyParser(&req)
		subject := strings.ToLower(strings.TrimSpace(req.Email))
		if subject == "" {
			subject = c.IP()
		}

		if cache == nil {
			if !local.allow(subject) {
				return tooManyAttempts()
			}
			return c.Next()
		}

		key := "rl:login:" + subject
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err == nil && cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt > int64(maxPerMin) {
			return tooManyAttempts()
		}
		return c.Next()
	}
}

func tooManyAttempts() error {
	return fiber.NewError(http.StatusTooManyRequests, "too many login attempts, try again later")
}

type localLimiter struct {
	mu       sync.Mutex
	perMin   int
	limiters map[string]*rate.Limiter
}

func newLocalLimiter(perMin int) *localLimiter {
	return &localLimiter{perMin: perMin, limiters: make(map[string]*rate.Limiter)}
}

func (l *localLimiter) allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
