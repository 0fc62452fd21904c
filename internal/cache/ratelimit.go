package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Domenick1991/aircheckin/config"
	"github.com/Domenick1991/aircheckin/internal/clock"
	"github.com/redis/go-redis/v9"
)

// tokenBucketScript refills by whole intervals and takes one token.
// Returns {allowed, remaining, retry_after_ms}.
const tokenBucketScript = `
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

if interval_ms > 0 and refill_tokens > 0 then
	local elapsed = math.max(0, now_ms - last_refill)
	local intervals = math.floor(elapsed / interval_ms)
	if intervals > 0 then
		tokens = math.min(capacity, tokens + (intervals * refill_tokens))
		last_refill = last_refill + (intervals * interval_ms)
	end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`

type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

type TokenBucket struct {
	client *redis.Client
	cfg    config.RateLimitConfig
	clock  clock.Clock
}

func NewTokenBucket(client *redis.Client, cfg config.RateLimitConfig, c clock.Clock) *TokenBucket {
	return &TokenBucket{client: client, cfg: cfg, clock: c}
}

func (b *TokenBucket) Allow(ctx context.Context, key string) (Decision, error) {
	args := []any{
		b.clock.Now().UnixMilli(),
		b.cfg.Capacity,
		b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(),
		int64(b.cfg.TTL / time.Second),
	}
	vals, err := b.client.Eval(ctx, tokenBucketScript, []string{rateKey(key)}, args...).Result()
	if err != nil {
		return Decision{}, err
	}
	arr, ok := vals.([]any)
	if !ok || len(arr) != 3 {
		return Decision{}, fmt.Errorf("unexpected rate limit result %#v", vals)
	}
	return Decision{
		Allowed:    asInt64(arr[0]) == 1,
		Remaining:  asInt64(arr[1]),
		RetryAfter: time.Duration(asInt64(arr[2])) * time.Millisecond,
	}, nil
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func rateKey(key string) string {
	return "ratelimit:" + key
}
