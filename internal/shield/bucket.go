package shield

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// tokenBucket refills RefillRate tokens per whole elapsed interval, capped at
// Capacity, and takes one token per call. Returns {allowed, remaining}.
var tokenBucket = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local refill = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local now = tonumber(ARGV[4])

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
	tokens = capacity
	ts = now
end

local elapsed = now - ts
if elapsed >= interval then
	local steps = math.floor(elapsed / interval)
	tokens = math.min(capacity, tokens + steps * refill)
	ts = ts + steps * interval
end

local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", ts)
redis.call("PEXPIRE", KEYS[1], interval * (math.ceil(capacity / refill) + 1))
return {allowed, tokens}
`)

func bucketKey(ip string) string {
	return "shield:bucket:" + ip
}

func (s *Shield) take(ctx context.Context, ip string) (bool, error) {
	if s.rdb == nil {
		return true, nil
	}
	res, err := tokenBucket.Run(ctx, s.rdb, []string{bucketKey(ip)},
		s.cfg.Capacity,
		s.cfg.RefillRate,
		s.cfg.RefillInterval.Milliseconds(),
		s.now().UnixMilli(),
	).Int64Slice()
	if err != nil {
		return false, err
	}
	return len(res) > 0 && res[0] == 1, nil
}
