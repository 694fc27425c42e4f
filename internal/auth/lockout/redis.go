package lockout

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// attemptScript reserves one attempt, starting the window on the first.
// Returns 1 when the key is locked or the window is full.
var attemptScript = redis.NewScript(`
local attempts = KEYS[1]
local lock = KEYS[2]
local max = tonumber(ARGV[1])
local window = tonumber(ARGV[2])

if redis.call('EXISTS', lock) == 1 then
	return 1
end

local n = tonumber(redis.call('GET', attempts) or '0')
if n >= max then
	return 1
end

n = redis.call('INCR', attempts)
if n == 1 then
	redis.call('PEXPIRE', attempts, window)
end
return 0
`)

// recordFailureScript settles a failed attempt and converts the window
// into a lock once it holds max attempts. Returns 1 when the key is locked.
var recordFailureScript = redis.NewScript(`
local attempts = KEYS[1]
local lock = KEYS[2]
local max = tonumber(ARGV[1])
local window = tonumber(ARGV[2])

if redis.call('EXISTS', lock) == 1 then
	return 1
end

local n = tonumber(redis.call('GET', attempts) or '0')
if n == 0 then
	n = redis.call('INCR', attempts)
	redis.call('PEXPIRE', attempts, window)
end

if n >= max then
	redis.call('SET', lock, '1', 'PX', window)
	redis.call('DEL', attempts)
	return 1
end
return 0
`)

// recordSuccessScript clears the window unless a lock landed first.
// Returns 1 when the key is locked.
var recordSuccessScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
	return 1
end
redis.call('DEL', KEYS[1])
return 0
`)

// Redis shares counters across instances.
type Redis struct {
	client *redis.Client
	policy Policy
	prefix string
}

// NewRedis connects to redisURL (redis://host:port/db) and verifies the
// connection.
func NewRedis(ctx context.Context, redisURL string, policy Policy) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	r, err := NewRedisWithClient(client, policy)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return r, nil
}

// NewRedisWithClient wraps an existing client. Close closes the client.
func NewRedisWithClient(client *redis.Client, policy Policy) (*Redis, error) {
	policy = policy.withDefaults()
	if err := policy.validate(); err != nil {
		return nil, err
	}
	return &Redis{client: client, policy: policy, prefix: "lockout:"}, nil
}

func (r *Redis) attemptsKey(key string) string { return r.prefix + "attempts:" + key }
func (r *Redis) lockKey(key string) string     { return r.prefix + "locked:" + key }

func (r *Redis) Locked(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.lockKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("lockout check failed: %w", err)
	}
	return n == 1, nil
}

func (r *Redis) Attempt(ctx context.Context, key string) (bool, error) {
	return r.run(ctx, attemptScript, key, "lockout attempt failed")
}

func (r *Redis) RecordFailure(ctx context.Context, key string) (bool, error) {
	return r.run(ctx, recordFailureScript, key, "lockout record failed")
}

func (r *Redis) RecordSuccess(ctx context.Context, key string) (bool, error) {
	return r.run(ctx, recordSuccessScript, key, "lockout reset failed")
}

func (r *Redis) run(ctx context.Context, script *redis.Script, key, msg string) (bool, error) {
	res, err := script.Run(ctx, r.client,
		[]string{r.attemptsKey(key), r.lockKey(key)},
		r.policy.MaxFailures, r.policy.Window.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("%s: %w", msg, err)
	}
	return res == 1, nil
}

func (r *Redis) Unlock(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.attemptsKey(key), r.lockKey(key)).Err(); err != nil {
		return fmt.Errorf("lockout unlock failed: %w", err)
	}
	return nil
}

// Ping is used by the readiness probe.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
