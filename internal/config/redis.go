package config

import (
	"github.com/redis/go-redis/v9"
	"gitlab.com/distributed_lab/figure/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

type Redis struct {
	// Client is nil when no redis section is configured; order counters
	// and throttling are disabled in that case.
	Client *redis.Client
}

func (c *config) Redis() Redis {
	return c.redisOnce.Do(func() interface{} {
		raw, err := c.getter.GetStringMap("redis")
		if err != nil || raw == nil {
			return Redis{}
		}

		var cfg struct {
			Addr     string `fig:"addr,required"`
			Password string `fig:"password"`
			DB       int    `fig:"db"`
		}
		if err := figure.Out(&cfg).From(raw).Please(); err != nil {
			panic(errors.Wrap(err, "failed to figure out redis"))
		}

		return Redis{Client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})}
	}).(Redis)
}
