// Package lockx implements a Redis single-flight lock for background jobs
// that must not run twice at once, such as the calendar rebuild and the
// snapshot compaction sweep. The lock is advisory: command handlers rely on
// the event store's version check, not on this package.
package lockx

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// Lock is a held single-flight lock. The token ties the release to the
// holder that acquired it, so a lock that expired and was re-acquired by
// another worker is never released by the first one.
type Lock struct {
	Key   string
	Token string
	TTL   time.Duration
}

// JobKey names the lock for a recurring worker job.
func JobKey(job string) string {
	return "timesheet:jobs:" + job
}

// Acquire takes the lock if it is free. The second return value reports
// whether this caller holds it; false without an error means another
// worker got there first and the job should be skipped this round.
func Acquire(ctx context.Context, client *redis.Client, key string, ttl time.Duration) (*Lock, bool, error) {
	if client == nil {
		return nil, false, errors.New("redis client not initialized")
	}
	if ttl <= 0 {
		return nil, false, errors.New("ttl must be > 0")
	}
	token := uuid.NewString()
	ok, err := client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return &Lock{Key: key, Token: token, TTL: ttl}, true, nil
}

// Release frees the lock if this holder still owns it.
func Release(ctx context.Context, client *redis.Client, lock *Lock) error {
	if client == nil {
		return errors.New("redis client not initialized")
	}
	if lock == nil {
		return errors.New("lock is nil")
	}
	return client.Eval(ctx, releaseScript, []string{lock.Key}, lock.Token).Err()
}
