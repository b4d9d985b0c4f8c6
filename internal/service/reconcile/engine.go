// Package reconcile turns the set of ledger transactions observed for
// an order's address into the order's paid status, resolving address
// reuse across orders through block-height windows.
package reconcile

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/straight-pay/gateway-svc/internal/data"
	"github.com/straight-pay/gateway-svc/internal/ledger"
	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

// Gateway is the boundary the engine needs from the order's gateway.
type Gateway interface {
	ConfirmationsRequired() int64
	FetchTransactionsFor(ctx context.Context, address string) ([]ledger.Transaction, error)
	OrderStatusChanged(order data.Order, oldStatus int32)
}

type Engine struct {
	log         *logan.Entry
	orders      data.Orders
	txs         data.Transactions
	minAccepted int64
	locks       keyedLock
}

func NewEngine(log *logan.Entry, orders data.Orders, txs data.Transactions, minAccepted int64) *Engine {
	return &Engine{
		log:         log.WithField("service", "reconcile"),
		orders:      orders,
		txs:         txs,
		minAccepted: minAccepted,
	}
}

// Reprocess recomputes status and amount_paid of an order whose payment
// window has already closed. Calling it on a still-new order is a
// programming error. It persists and fires the gateway's status-changed
// callback only when the recomputed pair actually differs, so repeated
// calls with no new ledger transactions are no-ops.
func (e *Engine) Reprocess(ctx context.Context, order *data.Order, gw Gateway) (bool, error) {
	if !order.Final() {
		return false, errors.From(errors.New("order is not in a final state"), logan.F{
			"order":  order.ID,
			"status": order.Status,
		})
	}

	unlock := e.locks.lock(order.ID)
	defer unlock()

	siblings, err := e.orders.SiblingHeights(*order)
	if err != nil {
		return false, errors.Wrap(err, "failed to get same-address orders")
	}
	min, max, err := allowedWindow(order.BlockHeightCreatedAt, siblings)
	if err != nil {
		return false, err
	}

	observed, err := gw.FetchTransactionsFor(ctx, order.Address)
	if err != nil {
		return false, errors.Wrap(err, "failed to fetch ledger transactions")
	}

	required := gw.ConfirmationsRequired()
	var paid int64
	accepted := make([]data.Transaction, 0, len(observed))
	for _, tx := range observed {
		if tx.BlockHeight <= 0 || tx.BlockHeight < min || tx.BlockHeight > max {
			continue
		}
		if required > 0 && tx.Confirmations < required {
			continue
		}
		paid += tx.Amount
		accepted = append(accepted, data.Transaction{
			OrderID:       order.ID,
			TID:           tx.TID,
			Amount:        tx.Amount,
			Confirmations: sql.NullInt64{Int64: tx.Confirmations, Valid: true},
			BlockHeight:   sql.NullInt64{Int64: tx.BlockHeight, Valid: true},
		})
	}

	status := statusFor(order.Amount, paid)
	if status == data.StatusNew {
		return false, nil
	}
	status = normalizeStatus(status)

	if status == order.Status && paid == order.AmountPaid {
		return false, nil
	}
	return true, e.persist(order, status, paid, accepted, gw)
}

// Refresh is the in-window poll step for not-yet-final orders: it
// checks the ledger without the block-height window (the window exists
// only to split reused addresses between closed orders) and advances
// the order from new to unconfirmed/paid as transactions show up.
func (e *Engine) Refresh(ctx context.Context, order *data.Order, gw Gateway) (bool, error) {
	if order.Final() {
		return false, nil
	}

	unlock := e.locks.lock(order.ID)
	defer unlock()

	observed, err := gw.FetchTransactionsFor(ctx, order.Address)
	if err != nil {
		return false, errors.Wrap(err, "failed to fetch ledger transactions")
	}

	required := gw.ConfirmationsRequired()
	var paid int64
	accepted := make([]data.Transaction, 0, len(observed))
	for _, tx := range observed {
		if required > 0 && tx.Confirmations < required {
			continue
		}
		paid += tx.Amount
		accepted = append(accepted, data.Transaction{
			OrderID:       order.ID,
			TID:           tx.TID,
			Amount:        tx.Amount,
			Confirmations: sql.NullInt64{Int64: tx.Confirmations, Valid: true},
			BlockHeight:   sql.NullInt64{Int64: tx.BlockHeight, Valid: tx.BlockHeight > 0},
		})
	}

	status := statusFor(order.Amount, paid)
	if status == data.StatusNew && len(observed) > 0 {
		// transactions exist but none is confirmed enough yet
		status = data.StatusUnconfirmed
	}
	status = normalizeStatus(status)

	if status == order.Status && paid == order.AmountPaid {
		return false, nil
	}
	return true, e.persist(order, status, paid, accepted, gw)
}

// FastCredit is the push-notification fast path: a single-transaction
// credit for gateways that accept unconfirmed payments. Push feeds
// deliver zero-confirmation mempool events, so it refuses to run when
// confirmations are required or the order is already final.
func (e *Engine) FastCredit(ctx context.Context, order *data.Order, gw Gateway, tid string, credit int64) (bool, error) {
	if gw.ConfirmationsRequired() != 0 || order.Final() || credit <= 0 {
		return false, nil
	}

	unlock := e.locks.lock(order.ID)
	defer unlock()

	existing, err := e.txs.SelectByOrder(order.ID)
	if err != nil {
		return false, errors.Wrap(err, "failed to select accepted transactions")
	}

	paid := credit
	for _, tx := range existing {
		if tx.TID == tid {
			// the notification was already credited through another path
			return false, nil
		}
		paid += tx.Amount
	}

	status := normalizeStatus(statusFor(order.Amount, paid))
	if status == data.StatusNew || (status == order.Status && paid == order.AmountPaid) {
		return false, nil
	}

	accepted := []data.Transaction{{
		OrderID:       order.ID,
		TID:           tid,
		Amount:        credit,
		Confirmations: sql.NullInt64{Int64: 0, Valid: true},
	}}
	return true, e.persist(order, status, paid, accepted, gw)
}

const orderSaveAttempts = 3

// persist upserts the accepted transaction set (each row independently,
// a failed row is logged and skipped), saves the order's own status and
// amount, then fires the status-changed callback exactly once.
func (e *Engine) persist(order *data.Order, status int32, paid int64, accepted []data.Transaction, gw Gateway) error {
	for _, tx := range accepted {
		if err := e.txs.Upsert(tx); err != nil {
			e.log.WithError(err).WithFields(logan.F{
				"order": order.ID,
				"tid":   tx.TID,
			}).Warn("failed to save accepted transaction, skipping it")
		}
	}

	oldStatus := order.Status
	order.Status = status
	order.AmountPaid = paid

	var err error
	for attempt := 0; attempt < orderSaveAttempts; attempt++ {
		if err = e.orders.Update(order); err == nil {
			break
		}
		time.Sleep(time.Duration(attempt+1) * 100 * time.Millisecond)
	}
	if err != nil {
		return errors.Wrap(err, "failed to save order")
	}

	gw.OrderStatusChanged(*order, oldStatus)
	return nil
}

// keyedLock serializes reconciliation per order. The filter+upsert
// design is idempotent under re-entry, so this is contention control,
// not a correctness requirement. Entries are refcounted and dropped on
// the last unlock, so the map stays bounded by concurrent orders.
type keyedLock struct {
	mu    sync.Mutex
	locks map[int64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedLock) lock(id int64) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[int64]*lockEntry)
	}
	e, ok := k.locks[id]
	if !ok {
		e = new(lockEntry)
		k.locks[id] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
