package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

// MarkTokenRedeemed sets a used marker for the secret via SETNX. Returns
// true only on the first call for a given secret, which makes it a cheap
// fast-path guard in front of the database consume.
func (r *RedisRepo) MarkTokenRedeemed(ctx context.Context, secret string, ttl time.Duration) (bool, error) {
	const op = "storage.redis.MarkTokenRedeemed"

	key := fmt.Sprintf("token:used:%s", secret)

	first, err := r.client.SetNX(ctx, key, "used", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return first, nil
}

// ClearTokenRedeemed drops the used marker, letting the token be tried
// again. Called when redemption fails after the marker was taken.
func (r *RedisRepo) ClearTokenRedeemed(ctx context.Context, secret string) error {
	const op = "storage.redis.ClearTokenRedeemed"

	key := fmt.Sprintf("token:used:%s", secret)

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisRepo) Close() {
	r.client.Close()
}
