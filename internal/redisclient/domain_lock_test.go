package redisclient_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/gosearch/internal/redisclient"
)

func newLocker(t *testing.T, ttl time.Duration) (*redisclient.DomainLocker, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	return redisclient.NewDomainLocker(client, ttl), srv
}

func TestDomainLocker_AcquireIsExclusive(t *testing.T) {
	locker, _ := newLocker(t, time.Minute)
	ctx := context.Background()

	token, ok, err := locker.Acquire(ctx, "example.com")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !ok {
		t.Fatal("Acquire() = false, expected to take free lock")
	}
	if token == "" {
		t.Error("Acquire() returned empty token")
	}

	// Second dispatch within the TTL window must lose.
	_, ok, err = locker.Acquire(ctx, "example.com")
	if err != nil {
		t.Fatalf("Acquire() second call error = %v", err)
	}
	if ok {
		t.Error("Acquire() = true while lock is held")
	}

	// A different domain is unaffected.
	_, ok, err = locker.Acquire(ctx, "other.org")
	if err != nil {
		t.Fatalf("Acquire() other domain error = %v", err)
	}
	if !ok {
		t.Error("Acquire() = false for unrelated domain")
	}
}

func TestDomainLocker_Locked(t *testing.T) {
	locker, _ := newLocker(t, time.Minute)
	ctx := context.Background()

	locked, err := locker.Locked(ctx, "example.com")
	if err != nil {
		t.Fatalf("Locked() error = %v", err)
	}
	if locked {
		t.Error("Locked() = true before any acquire")
	}

	if _, _, acquireErr := locker.Acquire(ctx, "example.com"); acquireErr != nil {
		t.Fatalf("Acquire() error = %v", acquireErr)
	}

	locked, err = locker.Locked(ctx, "example.com")
	if err != nil {
		t.Fatalf("Locked() error = %v", err)
	}
	if !locked {
		t.Error("Locked() = false while lock is held")
	}
}

func TestDomainLocker_LockExpires(t *testing.T) {
	locker, srv := newLocker(t, time.Minute)
	ctx := context.Background()

	if _, _, err := locker.Acquire(ctx, "example.com"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	srv.FastForward(time.Minute + time.Second)

	_, ok, err := locker.Acquire(ctx, "example.com")
	if err != nil {
		t.Fatalf("Acquire() after expiry error = %v", err)
	}
	if !ok {
		t.Error("Acquire() = false after lock expired")
	}
}

func TestDomainLocker_ReleaseRequiresOwnership(t *testing.T) {
	locker, srv := newLocker(t, time.Minute)
	ctx := context.Background()

	token, _, err := locker.Acquire(ctx, "example.com")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	// A stale token must not free the current holder's lock.
	if releaseErr := locker.Release(ctx, "example.com", "stale-token"); releaseErr != nil {
		t.Fatalf("Release() with stale token error = %v", releaseErr)
	}
	if !srv.Exists("lock:example.com") {
		t.Fatal("stale token release removed the lock")
	}

	if releaseErr := locker.Release(ctx, "example.com", token); releaseErr != nil {
		t.Fatalf("Release() error = %v", releaseErr)
	}
	if srv.Exists("lock:example.com") {
		t.Error("owner release left the lock behind")
	}
}
