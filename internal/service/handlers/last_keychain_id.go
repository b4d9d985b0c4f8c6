package handlers

import (
	"net/http"

	"gitlab.com/distributed_lab/ape"

	"github.com/straight-pay/gateway-svc/internal/service/auth"
)

func LastKeychainID(w http.ResponseWriter, r *http.Request) {
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

	ape.Render(w, struct {
		GatewayID      int64 `json:"gateway_id"`
		LastKeychainID int64 `json:"last_keychain_id"`
	}{
		GatewayID:      gw.Record().ID,
		LastKeychainID: gw.Record().LastKeychainID,
	})
}
