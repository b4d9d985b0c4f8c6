package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/straight-pay/gateway-svc/internal/service/gateways"
)

func closeDeadline() time.Time { return time.Now().Add(time.Second) }

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// OrderWebsocket opens the live status subscription for an order. One
// listener per order; completed orders cannot be listened to.
func OrderWebsocket(w http.ResponseWriter, r *http.Request) {
	log := Log(r)

	gw, err := requestGateway(r)
	if err != nil {
		log.WithError(err).Error("failed to get gateway")
		renderErr(w, http.StatusInternalServerError, "failed to get gateway")
		return
	}
	if gw == nil {
		renderErr(w, http.StatusNotFound, "gateway not found")
		return
	}

	order, err := requestOrder(r, gw)
	if err != nil {
		log.WithError(err).Error("failed to get order")
		renderErr(w, http.StatusInternalServerError, "failed to get order")
		return
	}
	if order == nil {
		renderErr(w, http.StatusNotFound, "order not found")
		return
	}

	if order.Final() {
		renderErr(w, http.StatusForbidden, "You cannot listen to this order because it is completed")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("failed to upgrade connection")
		return
	}

	if err = gw.AddOrderSocket(*order, conn); err != nil {
		if err == gateways.ErrSocketExists {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Someone is already listening to that order"), closeDeadline())
		}
		conn.Close()
		return
	}
}
