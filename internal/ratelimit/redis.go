package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:register:"

// allowScript increments the counter and starts the window on the first hit only,
// so later hits never push the expiry out. Over-limit hits are rolled back.
var allowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if n > tonumber(ARGV[2]) then
	redis.call("DECR", KEYS[1])
	return 0
end
return 1
`)

// Redis is a fixed-window limiter shared by every instance pointing at the same Redis.
type Redis struct {
	client *redis.Client
	window time.Duration
	max    int
}

// NewRedis creates a Redis-backed limiter. Non-positive arguments fall back to the defaults.
func NewRedis(client *redis.Client, window time.Duration, max int) *Redis {
	if window <= 0 {
		window = DefaultWindow
	}
	if max <= 0 {
		max = DefaultMax
	}
	return &Redis{client: client, window: window, max: max}
}

// Allow counts the request against ip.
func (r *Redis) Allow(ctx context.Context, ip string) (bool, error) {
	res, err := allowScript.Run(ctx, r.client, []string{keyPrefix + ip}, r.window.Milliseconds(), r.max).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit script: %w", err)
	}
	return res == 1, nil
}
