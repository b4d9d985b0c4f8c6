package handlers

import (
	"net/http"

	"github.com/straight-pay/gateway-svc/internal/data"
	"github.com/straight-pay/gateway-svc/internal/service/auth"
)

// CancelOrder cancels a still-new order and interrupts its periodic
// check task. Anything past the new state is not cancelable.
func CancelOrder(w http.ResponseWriter, r *http.Request) {
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

	if gw.CheckSignature() {
		switch err = authenticate(r, gw); err {
		case nil:
		case auth.ErrInvalidNonce:
			renderErr(w, http.StatusConflict, "X-Nonce is invalid")
			return
		default:
			renderErr(w, http.StatusConflict, "X-Signature is invalid")
			return
		}
	}

	// refresh before deciding: an external process may have settled the
	// order since it was last seen
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

	if !order.Cancelable() {
		renderErr(w, http.StatusConflict, "Order is not cancelable")
		return
	}

	oldStatus := order.Status
	if err = Orders(r).SetStatus(order.ID, data.StatusCanceled); err != nil {
		log.WithError(err).Error("failed to cancel order")
		renderErr(w, http.StatusInternalServerError, "failed to cancel order")
		return
	}
	Counters(r).OrderTransitioned(r.Context(), gw.Record().ID, oldStatus, data.StatusCanceled)
	Tracker(r).Interrupt(order.PaymentID)
	log.WithField("order", order.ID).Info("order canceled")

	w.WriteHeader(http.StatusOK)
}
