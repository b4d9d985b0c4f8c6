// Package dispatch routes push notifications from upstream ledger
// feeds to the orders currently awaiting payment on an address.
package dispatch

import (
	"sync"

	"gitlab.com/distributed_lab/logan/v3"
)

// Notification is a transaction push frame: the ledger transaction id
// and the list of output address -> credited amount pairs.
type Notification struct {
	TxID string            `json:"txid"`
	Vout []map[string]int64 `json:"vout"`
}

// CreditFor sums every output credited to the address.
func (n Notification) CreditFor(address string) int64 {
	var total int64
	for _, out := range n.Vout {
		total += out[address]
	}
	return total
}

// Callback handles a notification that matched the registered address.
type Callback func(Notification)

// Dispatcher owns the address registry shared by all feed listeners and
// the registration callers. One instance per running server.
type Dispatcher struct {
	log *logan.Entry

	mu       sync.RWMutex
	registry map[string]Callback
}

func New(log *logan.Entry) *Dispatcher {
	return &Dispatcher{
		log:      log.WithField("service", "dispatch"),
		registry: make(map[string]Callback),
	}
}

// Register adds the address to the registry. Idempotent: the first
// registration wins, re-registering is a no-op.
func (d *Dispatcher) Register(address string, cb Callback) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.registry[address]; ok {
		return
	}
	d.registry[address] = cb
	d.log.WithField("address", address).Info("added address for tracking")
}

// Deregister removes the address; removing an absent one is a no-op.
func (d *Dispatcher) Deregister(address string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.registry, address)
}

func (d *Dispatcher) Registered(address string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.registry[address]
	return ok
}

// Dispatch fans the notification out to every registered address it
// credits, at most once per address. Unregistered addresses are
// ignored; with an empty registry this returns immediately.
func (d *Dispatcher) Dispatch(feed string, n Notification) {
	d.mu.RLock()
	if len(d.registry) == 0 {
		d.mu.RUnlock()
		return
	}

	matched := make(map[string]Callback)
	for _, out := range n.Vout {
		for address := range out {
			if cb, ok := d.registry[address]; ok {
				matched[address] = cb
			}
		}
	}
	d.mu.RUnlock()

	for address, cb := range matched {
		d.log.WithFields(logan.F{
			"address": address,
			"feed":    feed,
			"txid":    n.TxID,
		}).Info("found transaction for tracked address")
		cb(n)
	}
}
