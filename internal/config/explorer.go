package config

import (
	"net/url"
	"time"

	"gitlab.com/distributed_lab/figure/v3"
	"gitlab.com/distributed_lab/kit/kv"
	"gitlab.com/distributed_lab/logan/v3/errors"

	"github.com/straight-pay/gateway-svc/internal/ledger"
)

type Explorer struct {
	Adapter ledger.Adapter
}

const defaultRequestTimeout = 10 * time.Second

func (c *config) Explorer() Explorer {
	return c.explorerOnce.Do(func() interface{} {
		var cfg struct {
			Endpoint       string        `fig:"endpoint,required"`
			RequestTimeout time.Duration `fig:"request_timeout"`
		}
		err := figure.Out(&cfg).
			From(kv.MustGetStringMap(c.getter, "explorer")).
			Please()
		if err != nil {
			panic(errors.Wrap(err, "failed to figure out explorer"))
		}

		endpoint, err := url.Parse(cfg.Endpoint)
		if err != nil {
			panic(errors.Wrap(err, "failed to parse explorer endpoint"))
		}
		if cfg.RequestTimeout == 0 {
			cfg.RequestTimeout = defaultRequestTimeout
		}

		return Explorer{Adapter: ledger.NewExplorer(endpoint, cfg.RequestTimeout)}
	}).(Explorer)
}
