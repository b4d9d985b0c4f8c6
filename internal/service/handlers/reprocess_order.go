package handlers

import (
	"net/http"

	"gitlab.com/distributed_lab/ape"

	"github.com/straight-pay/gateway-svc/internal/service/auth"
	"github.com/straight-pay/gateway-svc/internal/service/reconcile"
)

// ReprocessOrder re-runs full reconciliation for an order whose payment
// window has closed. Always signed: reprocessing mutates settled state,
// so the unauthenticated path of order creation does not apply here.
func ReprocessOrder(w http.ResponseWriter, r *http.Request) {
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

	switch err = authenticate(r, gw); err {
	case nil:
	case auth.ErrInvalidNonce:
		renderErr(w, http.StatusConflict, "X-Nonce is invalid")
		return
	default:
		renderErr(w, http.StatusConflict, "X-Signature is invalid")
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

	changed, err := Engine(r).Reprocess(r.Context(), order, gw)
	if err != nil {
		if reconcile.IsAmbiguity(err) {
			log.WithError(err).Warn("order reconciliation is ambiguous")
			renderErr(w, http.StatusConflict, err.Error())
			return
		}
		log.WithError(err).Error("failed to reprocess order")
		renderErr(w, http.StatusInternalServerError, "failed to reprocess order")
		return
	}
	log.WithFields(map[string]interface{}{"order": order.ID, "changed": changed}).
		Info("order reprocessed")

	ape.Render(w, newOrderResponse(r, *order, gw.Record().LastKeychainID))
}
