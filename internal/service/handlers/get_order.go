package handlers

import (
	"net/http"

	"gitlab.com/distributed_lab/ape"

	"github.com/straight-pay/gateway-svc/internal/service/auth"
)

// GetOrder returns the current order state. The order is always read
// back from storage: the persisted row is authoritative, the in-memory
// copy held by a tracker may lag behind a concurrent reconciliation.
func GetOrder(w http.ResponseWriter, r *http.Request) {
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

	ape.Render(w, newOrderResponse(r, *order, gw.Record().LastKeychainID))
}
