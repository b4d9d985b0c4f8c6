package config

import (
	"gitlab.com/distributed_lab/figure/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

type Signature struct {
	// SuperuserPublicKey is an optional PEM-encoded RSA public key; a
	// request signed by the matching private key authenticates against
	// any gateway.
	SuperuserPublicKey string `fig:"superuser_public_key"`
}

func (c *config) Signature() Signature {
	return c.signatureOnce.Do(func() interface{} {
		var cfg Signature

		raw, err := c.getter.GetStringMap("signature")
		if err != nil || raw == nil {
			return cfg
		}
		if err := figure.Out(&cfg).From(raw).Please(); err != nil {
			panic(errors.Wrap(err, "failed to figure out signature"))
		}

		return cfg
	}).(Signature)
}
