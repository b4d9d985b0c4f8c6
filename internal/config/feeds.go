package config

import (
	"time"

	"gitlab.com/distributed_lab/figure/v3"
	"gitlab.com/distributed_lab/kit/kv"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

const defaultConnectTimeout = 10 * time.Second

type Feed struct {
	Name           string        `fig:"name,required"`
	Endpoint       string        `fig:"endpoint,required"`
	ConnectTimeout time.Duration `fig:"connect_timeout"`
}

func (c *config) Feeds() []Feed {
	return c.feedsOnce.Do(func() interface{} {
		raw := kv.MustGetStringMap(c.getter, "feeds")

		list, ok := raw["list"].([]interface{})
		if !ok || len(list) == 0 {
			panic(errors.New("at least one feed must be configured"))
		}

		feeds := make([]Feed, 0, len(list))
		for _, item := range list {
			m, ok := item.(map[string]interface{})
			if !ok {
				panic(errors.New("feeds.list entries must be maps"))
			}

			var feed Feed
			if err := figure.Out(&feed).From(m).Please(); err != nil {
				panic(errors.Wrap(err, "failed to figure out feed"))
			}
			if feed.ConnectTimeout == 0 {
				feed.ConnectTimeout = defaultConnectTimeout
			}
			feeds = append(feeds, feed)
		}

		return feeds
	}).([]Feed)
}
