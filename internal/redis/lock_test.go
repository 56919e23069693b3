package redisclient

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestNoopLockerRunsFn(t *testing.T) {
	called := false
	err := NewNoopLocker().WithSlotLock(context.Background(), uuid.New(), func(context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("called=%t err=%v", called, err)
	}
}

func TestLockerUnreachableBackend(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	err := NewRedisSlotLocker(rdb, time.Second).WithSlotLock(context.Background(), uuid.New(), func(context.Context) error {
		t.Fatal("fn must not run without the lock")
		return nil
	})
	if !errors.Is(err, ErrLockUnavailable) {
		t.Fatalf("error = %v, want ErrLockUnavailable", err)
	}
}

func TestRedisSlotLock(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	rdb, err := NewRedisClient(ctx, Options{Addr: addr, Password: os.Getenv("REDIS_PASSWORD")})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer rdb.Close()

	locker := NewRedisSlotLocker(rdb, 5*time.Second)
	slotID := uuid.New()

	err = locker.WithSlotLock(ctx, slotID, func(ctx context.Context) error {
		inner := locker.WithSlotLock(ctx, slotID, func(context.Context) error { return nil })
		if !errors.Is(inner, ErrLockNotAcquired) {
			t.Errorf("nested lock: error = %v, want ErrLockNotAcquired", inner)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	n, err := rdb.Exists(ctx, lockKey(slotID)).Result()
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if n != 0 {
		t.Error("lock key left behind after release")
	}

	// a key now owned by someone else survives release
	other := lockKey(uuid.New())
	if err := rdb.Set(ctx, other, "someone-else", 5*time.Second).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	defer rdb.Del(ctx, other)
	if err := locker.(*redisSlotLocker).release(ctx, other, "me"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if n, _ := rdb.Exists(ctx, other).Result(); n != 1 {
		t.Error("release removed a lock held by another owner")
	}

	if err := PingCheck(rdb)(ctx); err != nil {
		t.Errorf("ping check: %v", err)
	}
}
