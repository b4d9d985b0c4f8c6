package handlers

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/straight-pay/gateway-svc/internal/service/auth"
	"github.com/straight-pay/gateway-svc/internal/service/gateways"
	"github.com/straight-pay/gateway-svc/internal/service/requests"
	"gitlab.com/distributed_lab/ape"
)

func CreateOrder(w http.ResponseWriter, r *http.Request) {
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
			log.Warn("X-Nonce is invalid")
			renderErr(w, http.StatusConflict, "X-Nonce is invalid")
			return
		default:
			log.Warn("X-Signature is invalid")
			renderErr(w, http.StatusConflict, "X-Signature is invalid")
			return
		}
	} else if Counters(r).Deny(r.Context(), gw.Record().ID, requestIP(r), Payments(r).ThrottleLimit) {
		log.WithField("ip", requestIP(r)).Warn("too many requests")
		renderErr(w, http.StatusTooManyRequests, "Too many requests, please try again later")
		return
	}

	req, err := requests.NewCreateOrder(r)
	if err != nil {
		if errs, ok := err.(validation.Errors); ok {
			renderValidationErr(w, errs)
			return
		}
		renderErr(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := gw.CreateOrder(r.Context(), gateways.CreateOrderParams{
		Amount:       req.AmountMinor(),
		KeychainID:   req.KeychainID,
		Description:  req.Description,
		Data:         req.Data,
		CallbackData: req.CallbackData,
		RedirectTo:   req.RedirectTo,
	})
	if err != nil {
		switch e := err.(type) {
		case validation.Errors:
			log.WithError(err).Warn("validation errors in order, cannot create it")
			renderValidationErr(w, e)
		default:
			if err == gateways.ErrGatewayInactive {
				log.Warn("the gateway is inactive, you cannot create order with it")
				renderErr(w, http.StatusServiceUnavailable, "The gateway is inactive, you cannot create order with it")
				return
			}
			log.WithError(err).Error("failed to create order")
			renderErr(w, http.StatusInternalServerError, "failed to create order")
		}
		return
	}

	Tracker(r).Track(*order, gw)

	ape.Render(w, newOrderResponse(r, *order, gw.Record().LastKeychainID))
}
