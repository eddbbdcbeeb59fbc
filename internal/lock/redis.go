package lock

import (
	"context"
	"fmt"
	"time"

	"appointment-service/pkg/response"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Locker interface {
	// Lock returns an owner token, or response.ErrLocked when the key is held.
	Lock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

// releaseScript deletes the key only while it still carries the caller's token,
// so an expired lock re-acquired by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLock struct {
	client *redis.Client
}

func NewRedisLock(redisAddr string) (*RedisLock, error) {
	const op = "lock.NewRedisLock"

	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisLock{client: client}, nil
}

func (r *RedisLock) Lock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	const op = "lock.RedisLock.Lock"

	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, lockKey(key), token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return "", fmt.Errorf("%s: %s: %w", op, key, response.ErrLocked)
	}

	return token, nil
}

func (r *RedisLock) Unlock(ctx context.Context, key, token string) error {
	const op = "lock.RedisLock.Unlock"

	if err := releaseScript.Run(ctx, r.client, []string{lockKey(key)}, token).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisLock) Close() error {
	return r.client.Close()
}

// SlotKey names the lock guarding one (date, start time) pair.
func SlotKey(date, startTime string) string {
	return fmt.Sprintf("appointment:%s:%s", date, startTime)
}

func lockKey(key string) string {
	return fmt.Sprintf("lock:%s", key)
}
