package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/redis/go-redis/v9"
)

// consumeScript runs the fixed window algorithm server-side so concurrent
// instances share one counter per identity.
//
// KEYS[1] counter hash; ARGV: now ms, window ms, max requests, reset ms.
var consumeScript = redis.NewScript(`
local count = redis.call("HGET", KEYS[1], "count")
local reset = redis.call("HGET", KEYS[1], "reset")
local now = tonumber(ARGV[1])
if not count or not reset or now > tonumber(reset) then
	redis.call("HSET", KEYS[1], "count", "1", "reset", ARGV[4])
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
	return 0
end
if tonumber(count) >= tonumber(ARGV[3]) then
	return 1
end
redis.call("HINCRBY", KEYS[1], "count", 1)
return 0
`)

// RedisStore keeps counters in Redis so they survive process restarts.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed counter store.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit:subscribe"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

// Consume implements Store.
func (s *RedisStore) Consume(ctx context.Context, identity string, now time.Time, window time.Duration, maxRequests int) (bool, error) {
	key := s.prefix + ":" + identity
	nowMS := now.UnixMilli()

	res, err := consumeScript.Run(ctx, s.client, []string{key},
		strconv.FormatInt(nowMS, 10),
		strconv.FormatInt(window.Milliseconds(), 10),
		strconv.Itoa(maxRequests),
		strconv.FormatInt(nowMS+window.Milliseconds(), 10),
	).Int()
	if err != nil {
		return false, fmt.Errorf("run consume script: %w", err)
	}
	return res == 1, nil
}

// OpenRedis connects to the server at url and waits until it answers a ping.
func OpenRedis(ctx context.Context, url string, logger *slog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	err = retry.Do(
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			return client.Ping(pingCtx).Err()
		},
		retry.Attempts(5),
		retry.Delay(time.Second),
		retry.MaxDelay(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.Info("Retrying Redis ping after error", "attempt", n, "error", err)
		}),
	)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
