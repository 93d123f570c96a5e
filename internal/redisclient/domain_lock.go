package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// lockKeyPrefix namespaces the per-domain dispatch locks.
const lockKeyPrefix = "lock:"

// releaseScript deletes a lock key only while the caller's token still owns
// it, so a dispatcher never frees a lock a later acquirer holds.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// DomainLocker is the cross-process politeness mutex: at most one dispatch
// per domain per TTL window. It is rate shaping, not mutual exclusion; the
// lock may expire while a worker is still crawling and that is acceptable.
type DomainLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDomainLocker creates a domain locker with the given lock TTL.
func NewDomainLocker(client *redis.Client, ttl time.Duration) *DomainLocker {
	return &DomainLocker{client: client, ttl: ttl}
}

// Locked reports whether a non-expired lock exists for the domain.
func (l *DomainLocker) Locked(ctx context.Context, domain string) (bool, error) {
	n, err := l.client.Exists(ctx, lockKeyPrefix+domain).Result()
	if err != nil {
		return false, fmt.Errorf("failed to probe domain lock: %w", err)
	}

	return n > 0, nil
}

// Acquire attempts to take the domain lock atomically. When acquired it
// returns the owner token needed to release early; when the lock is already
// held it returns ok=false without error.
func (l *DomainLocker) Acquire(ctx context.Context, domain string) (token string, ok bool, err error) {
	token = uuid.NewString()

	ok, err = l.client.SetNX(ctx, lockKeyPrefix+domain, token, l.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire domain lock: %w", err)
	}
	if !ok {
		return "", false, nil
	}

	return token, true, nil
}

// Release frees the domain lock if the token still owns it. Releasing an
// expired or re-acquired lock is a no-op.
func (l *DomainLocker) Release(ctx context.Context, domain, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{lockKeyPrefix + domain}, token).Err(); err != nil {
		return fmt.Errorf("failed to release domain lock: %w", err)
	}

	return nil
}
