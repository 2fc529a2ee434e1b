package rediscache

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/mentora/core/guard"
)

// hitScript mirrors guard.Entry.Hit on a hash {count, reset, until} (unix millis).
// Returns {allowed, remaining, retryAfterMs}.
var hitScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local max = tonumber(ARGV[2])
local window = tonumber(ARGV[3])
local block = tonumber(ARGV[4])

local e = redis.call('HMGET', KEYS[1], 'count', 'reset', 'until')
local count = tonumber(e[1]) or 0
local reset = tonumber(e[2]) or 0
local blocked = tonumber(e[3]) or 0

if blocked > 0 then
	if now < blocked then
		return {0, 0, blocked - now}
	end
	count = 0
	reset = 0
end
if now >= reset then
	count = 0
	reset = now + window
end

count = count + 1
local ttl = reset - now
if count > max then
	blocked = now + block
	if block > ttl then ttl = block end
	redis.call('HSET', KEYS[1], 'count', count, 'reset', reset, 'until', blocked)
	redis.call('PEXPIRE', KEYS[1], ttl)
	return {0, 0, block}
end
redis.call('HSET', KEYS[1], 'count', count, 'reset', reset, 'until', 0)
redis.call('PEXPIRE', KEYS[1], ttl)
return {1, max - count, 0}
`)

// flagScript sets the strict flag to ARGV[1] (unix millis) unless it already runs later.
// Returns 1 when the flag was written.
var flagScript = redis.NewScript(`
local untilMs = tonumber(ARGV[1])
local prev = tonumber(redis.call('GET', KEYS[1]) or '0') or 0
if prev >= untilMs then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('PEXPIREAT', KEYS[1], untilMs)
return 1
`)

// RateLimitStore shares counters and strict-mode flags between server instances.
type RateLimitStore struct {
	client redis.UniversalClient
}

var _ guard.Store = (*RateLimitStore)(nil)

func NewRateLimitStore(client redis.UniversalClient) *RateLimitStore {
	return &RateLimitStore{client: client}
}

func (s *RateLimitStore) Hit(ctx context.Context, key string, policy guard.Policy, now time.Time) (guard.Decision, error) {
	reply, err := hitScript.Run(ctx, s.client, []string{guard.StoreKey(policy, key)},
		now.UnixMilli(), policy.Max, policy.Window.Milliseconds(), policy.Block.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return guard.Decision{}, errors.Wrap(err, "running rate-limit script")
	}
	return decisionFromReply(reply)
}

func (s *RateLimitStore) Flag(ctx context.Context, id string, until time.Time) error {
	ms := strconv.FormatInt(until.UnixMilli(), 10)
	if err := flagScript.Run(ctx, s.client, []string{flagKey(id)}, ms).Err(); err != nil {
		return errors.Wrap(err, "setting strict flag")
	}
	return nil
}

func (s *RateLimitStore) Flagged(ctx context.Context, id string, now time.Time) (bool, error) {
	until, err := s.client.Get(ctx, flagKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "reading strict flag")
	}
	return now.UnixMilli() < until, nil
}

func flagKey(id string) string {
	return "rl:strict:" + id
}

func decisionFromReply(reply []int64) (guard.Decision, error) {
	if len(reply) != 3 {
		return guard.Decision{}, errors.Errorf("unexpected rate-limit reply %v", reply)
	}
	return guard.Decision{
		Allowed:    reply[0] == 1,
		Remaining:  int(reply[1]),
		RetryAfter: time.Duration(reply[2]) * time.Millisecond,
	}, nil
}
