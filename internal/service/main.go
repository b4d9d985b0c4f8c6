package service

import (
	"context"

	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"

	"github.com/straight-pay/gateway-svc/internal/config"
	"github.com/straight-pay/gateway-svc/internal/data"
	"github.com/straight-pay/gateway-svc/internal/data/postgres"
	"github.com/straight-pay/gateway-svc/internal/service/auth"
	"github.com/straight-pay/gateway-svc/internal/service/counters"
	"github.com/straight-pay/gateway-svc/internal/service/dispatch"
	"github.com/straight-pay/gateway-svc/internal/service/gateways"
	"github.com/straight-pay/gateway-svc/internal/service/reconcile"
	"github.com/straight-pay/gateway-svc/internal/service/tracker"
)

type service struct {
	cfg config.Config
	log *logan.Entry

	orders     data.Orders
	txs        data.Transactions
	registry   *gateways.Registry
	engine     *reconcile.Engine
	dispatcher *dispatch.Dispatcher
	tracker    *tracker.Tracker
	validator  *auth.Validator
	counters   *counters.Counters
}

func newService(cfg config.Config) *service {
	log := cfg.Log()
	payments := cfg.Payments()

	orders := postgres.NewOrders(cfg.DB())
	txs := postgres.NewTransactions(cfg.DB())
	cnt := counters.New(cfg.Redis().Client, log)

	registry := gateways.NewRegistry(
		log, orders, postgres.NewGateways(cfg.DB()),
		cfg.Explorer().Adapter, cfg.AddressProvider(), cnt,
		payments.ExpirationPeriod,
	)
	engine := reconcile.NewEngine(log, orders, txs, payments.MinAccepted)
	dispatcher := dispatch.New(log)

	return &service{
		cfg:        cfg,
		log:        log,
		orders:     orders,
		txs:        txs,
		registry:   registry,
		engine:     engine,
		dispatcher: dispatcher,
		tracker: tracker.New(log, orders, engine, dispatcher,
			payments.PollPeriod, payments.ExpirationOvertime),
		validator: auth.NewValidator(cfg.Signature().SuperuserPublicKey),
		counters:  cnt,
	}
}

func (s *service) run(ctx context.Context) error {
	s.log.Info("Service started")

	// a feed that cannot connect within its timeout is a startup
	// failure: the service must not run with zero working feeds
	for _, cfg := range s.cfg.Feeds() {
		feed, err := dispatch.NewFeed(cfg.Name, cfg.Endpoint, cfg.ConnectTimeout, s.dispatcher, s.log)
		if err != nil {
			return errors.Wrap(err, "failed to connect feed")
		}
		go feed.Run(ctx)
	}

	if err := s.resumeTracking(); err != nil {
		return errors.Wrap(err, "failed to resume order tracking")
	}

	return s.serveAPI(ctx)
}

// resumeTracking restarts the periodic checks for orders that were
// still inside their payment window when the process last stopped.
func (s *service) resumeTracking() error {
	active, err := s.orders.SelectActive()
	if err != nil {
		return errors.Wrap(err, "failed to select active orders")
	}

	for _, order := range active {
		gw, err := s.registry.Get(order.GatewayID)
		if err != nil {
			return errors.Wrap(err, "failed to get order's gateway", logan.F{"order": order.ID})
		}
		if gw == nil {
			s.log.WithField("order", order.ID).Warn("active order references unknown gateway")
			continue
		}
		s.tracker.Track(order, gw)
	}

	if len(active) > 0 {
		s.log.WithField("count", len(active)).Info("resumed tracking of active orders")
	}
	return nil
}

func Run(cfg config.Config) {
	if err := newService(cfg).run(context.Background()); err != nil {
		panic(errors.Wrap(err, "service terminated"))
	}
}
