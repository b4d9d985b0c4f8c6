// Package tracker runs the per-order payment watch: a bounded-lifetime
// periodic ledger check plus the push-notification fast path, ending in
// expiration and full reconciliation when the window closes unpaid.
package tracker

import (
	"context"
	"sync"
	"time"

	"gitlab.com/distributed_lab/logan/v3"

	"github.com/straight-pay/gateway-svc/internal/data"
	"github.com/straight-pay/gateway-svc/internal/service/dispatch"
	"github.com/straight-pay/gateway-svc/internal/service/gateways"
	"github.com/straight-pay/gateway-svc/internal/service/reconcile"
)

type Tracker struct {
	log        *logan.Entry
	orders     data.Orders
	engine     *reconcile.Engine
	dispatcher *dispatch.Dispatcher

	pollPeriod         time.Duration
	expirationOvertime time.Duration

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func New(
	log *logan.Entry,
	orders data.Orders,
	engine *reconcile.Engine,
	dispatcher *dispatch.Dispatcher,
	pollPeriod, expirationOvertime time.Duration,
) *Tracker {
	return &Tracker{
		log:                log.WithField("service", "tracker"),
		orders:             orders,
		engine:             engine,
		dispatcher:         dispatcher,
		pollPeriod:         pollPeriod,
		expirationOvertime: expirationOvertime,
		cancels:            make(map[string]context.CancelFunc),
	}
}

// TimeLeft is how long the order still accepts payments.
func (t *Tracker) TimeLeft(order data.Order, gw *gateways.Gateway) time.Duration {
	expiresAt := order.CreatedAt.Add(gw.ExpirationPeriod() + t.expirationOvertime)
	return time.Until(expiresAt)
}

// Track registers the order's address for push notifications and
// starts the periodic status check, bounded by the time left until the
// payment window expires. Orders already out of their window are not
// scheduled.
func (t *Tracker) Track(order data.Order, gw *gateways.Gateway) {
	left := t.TimeLeft(order, gw)
	if left <= 0 {
		return
	}
	log := t.log.WithField("order", order.ID)
	log.WithField("expires_in", left.String()).Info("starting periodic status checks")

	ctx, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	t.cancels[order.PaymentID] = cancel
	t.mu.Unlock()

	t.dispatcher.Register(order.Address, func(n dispatch.Notification) {
		t.fastPath(order.ID, order.Address, gw, n)
	})

	go t.watch(ctx, order, gw, left)
}

// Interrupt stops the periodic check labeled by the order's payment id.
// Observed cooperatively at the top of the next iteration.
func (t *Tracker) Interrupt(paymentID string) {
	t.mu.Lock()
	cancel, ok := t.cancels[paymentID]
	delete(t.cancels, paymentID)
	t.mu.Unlock()

	if ok {
		cancel()
	}
}

func (t *Tracker) watch(ctx context.Context, order data.Order, gw *gateways.Gateway, left time.Duration) {
	log := t.log.WithField("order", order.ID)
	defer t.Interrupt(order.PaymentID)

	expiry := time.NewTimer(left)
	defer expiry.Stop()
	ticker := time.NewTicker(t.pollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("periodic status check interrupted")
			t.dispatcher.Deregister(order.Address)
			return

		case <-expiry.C:
			t.expire(order.ID, gw, log)
			t.dispatcher.Deregister(order.Address)
			return

		case <-ticker.C:
			if done := t.poll(ctx, order.ID, gw, log); done {
				t.dispatcher.Deregister(order.Address)
				return
			}
		}
	}
}

// poll refreshes the order from storage (the authoritative state, never
// the in-memory copy) and runs the in-window ledger check. Returns true
// once the order reached a final state.
func (t *Tracker) poll(ctx context.Context, orderID int64, gw *gateways.Gateway, log *logan.Entry) bool {
	log.Debug("checking order status")

	order, err := t.orders.Get(orderID)
	if err != nil {
		log.WithError(err).Error("failed to refresh order")
		return false
	}
	if order == nil {
		log.Error("tracked order disappeared from storage")
		return true
	}
	if order.Final() {
		return true
	}

	if _, err = t.engine.Refresh(ctx, order, gw); err != nil {
		log.WithError(err).Error("failed to check order status")
		return false
	}
	return order.Final()
}

// expire closes the payment window and runs full reconciliation over
// everything the ledger has seen for the address.
func (t *Tracker) expire(orderID int64, gw *gateways.Gateway, log *logan.Entry) {
	order, err := t.orders.Get(orderID)
	if err != nil || order == nil {
		log.WithError(err).Error("failed to refresh order on expiry")
		return
	}
	if order.Final() {
		return
	}

	oldStatus := order.Status
	order.Status = data.StatusExpired
	if err = t.orders.Update(order); err != nil {
		log.WithError(err).Error("failed to expire order")
		return
	}
	gw.OrderStatusChanged(*order, oldStatus)
	log.Info("order expired, reprocessing")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err = t.engine.Reprocess(ctx, order, gw); err != nil {
		// ambiguity and transient errors are logged, the order stays
		// unresolved rather than guessed at
		log.WithError(err).Error("failed to reprocess expired order")
	}
}

// fastPath credits a push notification to the order. The engine itself
// refuses the fast path when confirmations are required or the order is
// already final.
func (t *Tracker) fastPath(orderID int64, address string, gw *gateways.Gateway, n dispatch.Notification) {
	log := t.log.WithField("order", orderID)

	order, err := t.orders.Get(orderID)
	if err != nil {
		log.WithError(err).Error("failed to refresh order")
		return
	}
	if order == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err = t.engine.FastCredit(ctx, order, gw, n.TxID, n.CreditFor(address)); err != nil {
		log.WithError(err).Error("failed to credit push notification")
		return
	}

	if order.Final() {
		t.dispatcher.Deregister(address)
		t.Interrupt(order.PaymentID)
	}
}
