package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("slot lock not acquired")
	ErrLockUnavailable = errors.New("slot lock backend unavailable")
)

// Locker serialises booking attempts per slot. It only makes concurrent
// losers fail fast; the store's compare-and-set is what prevents double
// booking.
type Locker interface {
	WithSlotLock(ctx context.Context, slotID uuid.UUID, fn func(ctx context.Context) error) error
}

type redisSlotLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSlotLocker creates a locker that uses a per slot Redis key.
func NewRedisSlotLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisSlotLocker{
		client: client,
		ttl:    ttl,
	}
}

func lockKey(slotID uuid.UUID) string {
	return "booking:slot:" + slotID.String()
}

// WithSlotLock holds "booking:slot:<id>" for the duration of fn, or at most
// the TTL, whichever ends first. A slot already held by another request
// returns ErrLockNotAcquired without calling fn.
func (l *redisSlotLocker) WithSlotLock(ctx context.Context, slotID uuid.UUID, fn func(ctx context.Context) error) error {
	key := lockKey(slotID)
	owner := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, key, owner, l.ttl).Result()
	switch {
	case err != nil:
		return fmt.Errorf("%w: %w", ErrLockUnavailable, err)
	case !acquired:
		return ErrLockNotAcquired
	}
	defer l.unlock(ctx, key, owner)

	bounded, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()
	return fn(bounded)
}

// unlock deletes the key if owner still holds it. The caller's ctx may be
// done by now, so it gets a short budget of its own.
func (l *redisSlotLocker) unlock(ctx context.Context, key, owner string) {
	unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	_ = l.release(unlockCtx, key, owner)
}

// compare-and-delete, so an expired lock taken over by another request is
// left alone
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
  return 0
end
return redis.call("DEL", KEYS[1])
`)

func (l *redisSlotLocker) release(ctx context.Context, key, owner string) error {
	err := unlockScript.Run(ctx, l.client, []string{key}, owner).Err()
	if err == nil || errors.Is(err, redis.Nil) {
		return nil
	}
	return fmt.Errorf("unlock %s: %w", key, err)
}

type noopLocker struct{}

// NewNoopLocker runs fn straight away. Used when Redis is not configured.
func NewNoopLocker() Locker {
	return noopLocker{}
}

func (noopLocker) WithSlotLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
