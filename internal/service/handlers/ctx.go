package handlers

import (
	"context"
	"net/http"

	"gitlab.com/distributed_lab/logan/v3"

	"github.com/straight-pay/gateway-svc/internal/config"
	"github.com/straight-pay/gateway-svc/internal/data"
	"github.com/straight-pay/gateway-svc/internal/service/auth"
	"github.com/straight-pay/gateway-svc/internal/service/counters"
	"github.com/straight-pay/gateway-svc/internal/service/gateways"
	"github.com/straight-pay/gateway-svc/internal/service/reconcile"
	"github.com/straight-pay/gateway-svc/internal/service/tracker"
)

type ctxKey int

const (
	logCtxKey ctxKey = iota
	ordersCtxKey
	gatewaysCtxKey
	engineCtxKey
	trackerCtxKey
	validatorCtxKey
	countersCtxKey
	paymentsCtxKey
)

func CtxLog(entry *logan.Entry) func(context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		return context.WithValue(ctx, logCtxKey, entry)
	}
}

func Log(r *http.Request) *logan.Entry {
	return r.Context().Value(logCtxKey).(*logan.Entry)
}

func CtxOrders(q data.Orders) func(context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		return context.WithValue(ctx, ordersCtxKey, q)
	}
}

func Orders(r *http.Request) data.Orders {
	return r.Context().Value(ordersCtxKey).(data.Orders)
}

func CtxGateways(reg *gateways.Registry) func(context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		return context.WithValue(ctx, gatewaysCtxKey, reg)
	}
}

func Gateways(r *http.Request) *gateways.Registry {
	return r.Context().Value(gatewaysCtxKey).(*gateways.Registry)
}

func CtxEngine(e *reconcile.Engine) func(context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		return context.WithValue(ctx, engineCtxKey, e)
	}
}

func Engine(r *http.Request) *reconcile.Engine {
	return r.Context().Value(engineCtxKey).(*reconcile.Engine)
}

func CtxTracker(t *tracker.Tracker) func(context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		return context.WithValue(ctx, trackerCtxKey, t)
	}
}

func Tracker(r *http.Request) *tracker.Tracker {
	return r.Context().Value(trackerCtxKey).(*tracker.Tracker)
}

func CtxValidator(v *auth.Validator) func(context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		return context.WithValue(ctx, validatorCtxKey, v)
	}
}

func Validator(r *http.Request) *auth.Validator {
	return r.Context().Value(validatorCtxKey).(*auth.Validator)
}

func CtxCounters(c *counters.Counters) func(context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		return context.WithValue(ctx, countersCtxKey, c)
	}
}

func Counters(r *http.Request) *counters.Counters {
	return r.Context().Value(countersCtxKey).(*counters.Counters)
}

func CtxPayments(p config.Payments) func(context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		return context.WithValue(ctx, paymentsCtxKey, p)
	}
}

func Payments(r *http.Request) config.Payments {
	return r.Context().Value(paymentsCtxKey).(config.Payments)
}
