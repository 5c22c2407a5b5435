package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shrimpsizemoose/trekker/logger"
)

const submitLockKeyTpl = "submit:%s" // submit:${token}

// releaseScript deletes the lock only while it still holds our value.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SubmitLock keeps two submissions of the same token from running at once.
type SubmitLock struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewSubmitLock(client *redis.Client, ttl time.Duration) *SubmitLock {
	return &SubmitLock{redis: client, ttl: ttl}
}

func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (l *SubmitLock) Acquire(ctx context.Context, token string) (func(), bool, error) {
	key := fmt.Sprintf(submitLockKeyTpl, token)
	value := uuid.NewString()

	ok, err := l.redis.SetNX(ctx, key, value, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire submit lock: %w", err)
	}
	if !ok {
		return func() {}, false, nil
	}

	release := func() {
		if err := releaseScript.Run(context.Background(), l.redis, []string{key}, value).Err(); err != nil {
			logger.Error.Printf("Failed to release submit lock: %v", err)
		}
	}
	return release, true, nil
}

func (l *SubmitLock) Close() error {
	if l.redis != nil {
		return l.redis.Close()
	}
	return nil
}
