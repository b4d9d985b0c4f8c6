package gateways

import (
	"net/http"
	"sync"
	"time"

	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"

	"github.com/straight-pay/gateway-svc/internal/data"
	"github.com/straight-pay/gateway-svc/internal/ledger"
	"github.com/straight-pay/gateway-svc/internal/service/counters"
)

// Registry is the lifetime-scoped owner of gateway runtimes: one
// instance per running server, guarded explicitly, no package-level
// state.
type Registry struct {
	log       *logan.Entry
	orders    data.Orders
	gateways  data.Gateways
	ledger    ledger.Adapter
	addresses ledger.AddressProvider
	counters  *counters.Counters

	defaultExpiration time.Duration

	mu    sync.Mutex
	cache map[int64]*Gateway
}

func NewRegistry(
	log *logan.Entry,
	orders data.Orders,
	gws data.Gateways,
	adapter ledger.Adapter,
	addresses ledger.AddressProvider,
	cnt *counters.Counters,
	defaultExpiration time.Duration,
) *Registry {
	return &Registry{
		log:               log.WithField("service", "gateways"),
		orders:            orders,
		gateways:          gws,
		ledger:            adapter,
		addresses:         addresses,
		counters:          cnt,
		defaultExpiration: defaultExpiration,
		cache:             make(map[int64]*Gateway),
	}
}

// Get returns the runtime for the gateway id, or nil when no such
// gateway exists.
func (r *Registry) Get(id int64) (*Gateway, error) {
	rec, err := r.gateways.Get(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get gateway")
	}
	if rec == nil {
		return nil, nil
	}
	return r.wrap(*rec), nil
}

// ByHashedID resolves the external-facing gateway identifier.
func (r *Registry) ByHashedID(hashedID string) (*Gateway, error) {
	rec, err := r.gateways.ByHashedID(hashedID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get gateway by hashed id")
	}
	if rec == nil {
		return nil, nil
	}
	return r.wrap(*rec), nil
}

func (r *Registry) wrap(rec data.Gateway) *Gateway {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.cache[rec.ID]; ok {
		g.setRecord(rec)
		return g
	}

	g := &Gateway{
		rec:               rec,
		log:               r.log.WithField("gateway", rec.ID),
		orders:            r.orders,
		gateways:          r.gateways,
		ledger:            r.ledger,
		addresses:         r.addresses,
		counters:          r.counters,
		sockets:           newSocketHub(r.log),
		client:            &http.Client{Timeout: callbackTimeout},
		defaultExpiration: r.defaultExpiration,
	}
	r.cache[rec.ID] = g
	return g
}
