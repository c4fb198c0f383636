// 包 utils：外部依赖连接工具（Postgres、Redis、TLS 证书）
package utils

import (
	"context"
	"sealevel/internal/config"
	"sealevel/internal/logger"
	"time"

	"github.com/redis/go-redis/v9"
)

// OpenRedis：打开 Redis 客户端并 Ping；失败时关闭客户端并返回错误，由上层决定是否降级
func OpenRedis(ctx context.Context, c config.Redis) (*redis.Client, error) {
	rc := redis.NewClient(&redis.Options{Addr: c.Addr(), Password: c.Password, DB: c.DB})
	logger.L().Debug("redis_env", "addr", c.Addr(), "db", c.DB)
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(pctx).Err(); err != nil {
		_ = rc.Close()
		return nil, err
	}
	return rc, nil
}
