package call

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RingGuard is a Redis-backed single-slot hold on a callee's line, acquired
// at initiate and released once the call leaves ringing. It turns the
// busy-check/create sequence into a conditional write for the ringing window.
// The TTL prevents a crashed caller from holding a line forever.
type RingGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRingGuard(rdb *redis.Client, ttl time.Duration) *RingGuard {
	return &RingGuard{rdb: rdb, ttl: ttl}
}

var ringAcquireScript = redis.NewScript(`
-- KEYS[1] = line key
-- ARGV[1] = ttl_ms (int)
--
-- Returns:
--  1 if acquired
--  0 if rejected (line already held)
local current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
else
  -- Ensure TTL exists even if key already existed without TTL
  if redis.call('PTTL', KEYS[1]) < 0 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
  end
end

if current > 1 then
  redis.call('DECR', KEYS[1])
  return 0
end
return 1
`)

var ringReleaseScript = redis.NewScript(`
-- KEYS[1] = line key
-- Decrement, and delete if <= 0
local current = redis.call('DECR', KEYS[1])
if current <= 0 then
  redis.call('DEL', KEYS[1])
end
return 1
`)

func (g *RingGuard) key(calleeID string) string {
	return "call:line:" + calleeID
}

func (g *RingGuard) Acquire(ctx context.Context, calleeID string) (bool, error) {
	if calleeID == "" {
		return false, fmt.Errorf("callee id is required")
	}
	res, err := ringAcquireScript.Run(ctx, g.rdb, []string{g.key(calleeID)}, g.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (g *RingGuard) Release(ctx context.Context, calleeID string) error {
	if calleeID == "" {
		return fmt.Errorf("callee id is required")
	}
	_, err := ringReleaseScript.Run(ctx, g.rdb, []string{g.key(calleeID)}).Result()
	return err
}
