package config

import (
	"time"

	"gitlab.com/distributed_lab/figure/v3"
	"gitlab.com/distributed_lab/kit/kv"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

const (
	defaultExpirationPeriod = 10 * time.Minute
	defaultPollPeriod       = 10 * time.Second
	// defaultMinAccepted is the ledger's relay floor in minor units;
	// amounts owed below it are clamped up for display.
	defaultMinAccepted int64 = 5430
)

type Payments struct {
	ExpirationPeriod   time.Duration `fig:"expiration_period"`
	ExpirationOvertime time.Duration `fig:"expiration_overtime"`
	PollPeriod         time.Duration `fig:"poll_period"`
	MinAccepted        int64         `fig:"min_accepted"`
	ThrottleLimit      int64         `fig:"throttle_limit"`
}

func (c *config) Payments() Payments {
	return c.paymentsOnce.Do(func() interface{} {
		var cfg Payments
		err := figure.Out(&cfg).
			From(kv.MustGetStringMap(c.getter, "payments")).
			Please()
		if err != nil {
			panic(errors.Wrap(err, "failed to figure out payments"))
		}

		if cfg.ExpirationPeriod == 0 {
			cfg.ExpirationPeriod = defaultExpirationPeriod
		}
		if cfg.PollPeriod == 0 {
			cfg.PollPeriod = defaultPollPeriod
		}
		if cfg.MinAccepted == 0 {
			cfg.MinAccepted = defaultMinAccepted
		}

		return cfg
	}).(Payments)
}
