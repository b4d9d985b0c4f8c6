package config

import (
	"gitlab.com/distributed_lab/kit/comfig"
	"gitlab.com/distributed_lab/kit/kv"
	"gitlab.com/distributed_lab/kit/pgdb"

	"github.com/straight-pay/gateway-svc/internal/ledger"
)

type Config interface {
	comfig.Logger
	comfig.Listenerer
	pgdb.Databaser

	Payments() Payments
	Feeds() []Feed
	Signature() Signature
	Explorer() Explorer
	AddressProvider() ledger.AddressProvider
	Redis() Redis
}

type config struct {
	comfig.Logger
	comfig.Listenerer
	pgdb.Databaser
	getter kv.Getter

	paymentsOnce  comfig.Once
	feedsOnce     comfig.Once
	signatureOnce comfig.Once
	explorerOnce  comfig.Once
	addressesOnce comfig.Once
	redisOnce     comfig.Once
}

func New(getter kv.Getter) Config {
	return &config{
		getter:     getter,
		Databaser:  pgdb.NewDatabaser(getter),
		Listenerer: comfig.NewListenerer(getter),
		Logger:     comfig.NewLogger(getter, comfig.LoggerOpts{}),
	}
}
