package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "sealevel:selection"

// Redis：选择保存在单个字符串键中
type Redis struct {
	rc  *redis.Client
	key string
}

func NewRedis(rc *redis.Client, key string) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{rc: rc, key: key}
}

func (r *Redis) LoadSelection(ctx context.Context) (string, error) {
	v, err := r.rc.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) || (err == nil && v == "") {
		return "", ErrNoSelection
	}
	return v, err
}

func (r *Redis) SaveSelection(ctx context.Context, id string) error {
	return r.rc.Set(ctx, r.key, id, 0).Err()
}
