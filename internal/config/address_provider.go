package config

import (
	"net/url"
	"time"

	"gitlab.com/distributed_lab/figure/v3"
	"gitlab.com/distributed_lab/kit/kv"
	"gitlab.com/distributed_lab/logan/v3/errors"

	"github.com/straight-pay/gateway-svc/internal/ledger"
)

func (c *config) AddressProvider() ledger.AddressProvider {
	return c.addressesOnce.Do(func() interface{} {
		var cfg struct {
			Endpoint       string        `fig:"endpoint,required"`
			RequestTimeout time.Duration `fig:"request_timeout"`
		}
		err := figure.Out(&cfg).
			From(kv.MustGetStringMap(c.getter, "address_provider")).
			Please()
		if err != nil {
			panic(errors.Wrap(err, "failed to figure out address provider"))
		}

		endpoint, err := url.Parse(cfg.Endpoint)
		if err != nil {
			panic(errors.Wrap(err, "failed to parse address provider endpoint"))
		}
		if cfg.RequestTimeout == 0 {
			cfg.RequestTimeout = defaultRequestTimeout
		}

		return ledger.NewAddressService(endpoint, cfg.RequestTimeout)
	}).(ledger.AddressProvider)
}
