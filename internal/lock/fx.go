package lock

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/signbilling/internal/clock"
	"github.com/smallbiznis/signbilling/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("lock",
	fx.Provide(NewLocker),
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Clock     clock.Clock
	Log       *zap.Logger
}

// NewLocker uses redis when REDIS_ADDR is set and falls back to in-process locks.
func NewLocker(p Params) Locker {
	log := p.Log.Named("lock")
	if p.Config.RedisAddr == "" {
		log.Info("using in-process locks")
		return NewLocalLocker(p.Clock)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     p.Config.RedisAddr,
		Password: p.Config.RedisPassword,
		DB:       p.Config.RedisDB,
	})
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis ping failed", zap.String("addr", p.Config.RedisAddr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	log.Info("using redis locks", zap.String("addr", p.Config.RedisAddr))
	return NewRedisLocker(client)
}
