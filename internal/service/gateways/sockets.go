package gateways

import (
	"sync"

	"github.com/gorilla/websocket"
	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"

	"github.com/straight-pay/gateway-svc/internal/data"
)

var (
	ErrSocketExists        = errors.New("someone is already listening to that order")
	ErrSocketForFinalOrder = errors.New("order is already completed")
)

// socketHub holds at most one live status subscription per order.
type socketHub struct {
	log *logan.Entry

	mu      sync.Mutex
	byOrder map[int64]*websocket.Conn
}

func newSocketHub(log *logan.Entry) *socketHub {
	return &socketHub{
		log:     log.WithField("service", "order-sockets"),
		byOrder: make(map[int64]*websocket.Conn),
	}
}

// AddOrderSocket attaches a live status subscription to the order.
func (g *Gateway) AddOrderSocket(order data.Order, conn *websocket.Conn) error {
	if order.Final() {
		return ErrSocketForFinalOrder
	}

	g.sockets.mu.Lock()
	defer g.sockets.mu.Unlock()

	if _, ok := g.sockets.byOrder[order.ID]; ok {
		return ErrSocketExists
	}
	g.sockets.byOrder[order.ID] = conn
	return nil
}

// notify pushes the order state to its subscriber, closing the socket
// once the order reached a final state.
func (h *socketHub) notify(order data.Order) {
	h.mu.Lock()
	conn, ok := h.byOrder[order.ID]
	if ok && order.Final() {
		delete(h.byOrder, order.ID)
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	payload := map[string]interface{}{
		"id":          order.ID,
		"payment_id":  order.PaymentID,
		"status":      order.Status,
		"amount":      order.Amount,
		"amount_paid": order.AmountPaid,
		"address":     order.Address,
	}
	if err := conn.WriteJSON(payload); err != nil {
		h.log.WithError(err).WithField("order", order.ID).Warn("failed to push order update")
	}
	if order.Final() {
		conn.Close()
	}
}
