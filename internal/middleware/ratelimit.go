package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens to a request when Redis cannot be reached.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

var errNoRateStore = errors.New("rate limit store not configured")

// RateRule allows Limit hits per Window for each caller of a named route.
// Callers are the session user when logged in and the remote IP otherwise.
type RateRule struct {
	Name   string
	Limit  int
	Window time.Duration
	Policy FailPolicy
}

// RateDecision is the outcome of counting one hit.
type RateDecision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// rateLimitBypassed is true outside deployed environments.
func rateLimitBypassed() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development":
		return true
	}
	return false
}

func rateKey(name, caller string) string {
	return "warbler:rl:" + name + ":" + caller
}

// Take counts one hit by caller. The window starts with the first hit and is
// fixed, not sliding.
func (r RateRule) Take(ctx context.Context, rdb *redis.Client, caller string) (RateDecision, error) {
	if rateLimitBypassed() {
		return RateDecision{Allowed: true, Remaining: r.Limit}, nil
	}
	if rdb == nil {
		return RateDecision{}, errNoRateStore
	}

	key := rateKey(r.Name, caller)
	hits, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return RateDecision{}, err
	}
	if hits == 1 {
		if err := rdb.Expire(ctx, key, r.Window).Err(); err != nil {
			return RateDecision{}, err
		}
	}

	if hits <= int64(r.Limit) {
		return RateDecision{Allowed: true, Remaining: r.Limit - int(hits)}, nil
	}

	retry, err := rdb.TTL(ctx, key).Result()
	if err != nil || retry < 0 {
		retry = r.Window
	}
	return RateDecision{RetryAfter: retry}, nil
}

func rateCaller(c *fiber.Ctx) string {
	if uid, ok := CurrentUserID(c); ok {
		return fmt.Sprintf("user:%d", uid)
	}
	return "ip:" + c.IP()
}

// RateLimit enforces rule on a route. Rejected requests get 429 with a
// Retry-After header.
func RateLimit(rdb *redis.Client, rule RateRule) fiber.Handler {
	if rule.Name == "" {
		panic("middleware: RateRule needs a name")
	}
	return func(c *fiber.Ctx) error {
		d, err := rule.Take(c.UserContext(), rdb, rateCaller(c))
		if err != nil {
			Logger.WarnContext(c.UserContext(), "rate limit check failed",
				slog.String("rule", rule.Name),
				slog.String("error", err.Error()),
			)
			if rule.Policy == FailClosed {
				return c.Status(fiber.StatusServiceUnavailable).SendString("Service temporarily unavailable, please try again.")
			}
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(d.RetryAfter.Round(time.Second)/time.Second)))
			return c.Status(fiber.StatusTooManyRequests).SendString("Too many requests, please slow down.")
		}
		return c.Next()
	}
}
