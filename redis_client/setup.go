package redis_client

import (
	"context"
	"fmt"

	redis "github.com/go-redis/redis/v8"
	"github.com/leeforge/fresson/logging"
	"go.uber.org/zap"
)

// NewRedis 创建客户端并 Ping, 超时由 cnf.DialTimeout 控制
func NewRedis(ctx context.Context, cnf Config, logger logging.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cnf.Addr(),
		Password:    cnf.Password,
		DB:          cnf.DB,
		DialTimeout: cnf.DialTimeout,
	})

	pingCtx := ctx
	if cnf.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cnf.DialTimeout)
		defer cancel()
	}
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cnf.Addr(), err)
	}

	if logger != nil {
		logger.Info("redis connected", redisConfigLogFields(cnf)...)
	}
	return client, nil
}

func redisConfigLogFields(cnf Config) []zap.Field {
	return []zap.Field{
		zap.String("addr", cnf.Addr()),
		zap.Int("db", cnf.DB),
		zap.String("password", redactedPassword(cnf.Password)),
	}
}

func redactedPassword(password string) string {
	if password == "" {
		return "<empty>"
	}
	return "[REDACTED]"
}
