package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// INCR + PEXPIRE as one script so the window TTL is set exactly once.
var limitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// Limiter is a fixed-window counter in Redis, used to throttle payment
// verification attempts per user. Signature checking itself never retries;
// this keeps a client from hammering the trust boundary.
type Limiter struct {
	Client *redis.Client
	Prefix string
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{Client: client, Prefix: "platform:ratelimit"}
}

// Allow consumes one attempt for subject within the window. It returns true
// while the count is at or under limit. A Redis outage fails open: blocking
// payments on cache availability is worse than skipping the throttle.
func (l *Limiter) Allow(ctx context.Context, scope, subject string, limit int, window time.Duration) bool {
	if l == nil || l.Client == nil || limit <= 0 {
		return true
	}

	key := fmt.Sprintf("%s:%s:%s", l.Prefix, scope, subject)
	count, err := limitScript.Run(ctx, l.Client, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return true
	}
	return count <= int64(limit)
}
