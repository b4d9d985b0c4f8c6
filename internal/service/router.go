package service

import (
	"context"

	"github.com/go-chi/chi"
	"gitlab.com/distributed_lab/ape"

	"github.com/straight-pay/gateway-svc/internal/service/handlers"
)

func (s *service) router() chi.Router {
	r := chi.NewRouter()

	r.Use(
		ape.RecoverMiddleware(s.log),
		ape.LoganMiddleware(s.log),
		ape.CtxMiddleware(
			handlers.CtxLog(s.log),
			handlers.CtxOrders(s.orders),
			handlers.CtxGateways(s.registry),
			handlers.CtxEngine(s.engine),
			handlers.CtxTracker(s.tracker),
			handlers.CtxValidator(s.validator),
			handlers.CtxCounters(s.counters),
			handlers.CtxPayments(s.cfg.Payments()),
		),
	)

	r.Route("/gateways/{gateway}", func(r chi.Router) {
		r.Post("/orders", handlers.CreateOrder)
		r.Get("/last_keychain_id", handlers.LastKeychainID)
		r.Route("/orders/{order}", func(r chi.Router) {
			r.Get("/", handlers.GetOrder)
			r.Post("/cancel", handlers.CancelOrder)
			r.Post("/reprocess", handlers.ReprocessOrder)
			r.Get("/websocket", handlers.OrderWebsocket)
		})
	})

	return r
}

func (s *service) serveAPI(ctx context.Context) error {
	ape.Serve(ctx, s.router(), s.cfg, ape.ServeOpts{})
	return nil
}
