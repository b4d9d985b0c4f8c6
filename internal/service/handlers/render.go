package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/jsonapi"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gitlab.com/distributed_lab/ape"

	"github.com/straight-pay/gateway-svc/internal/data"
)

type orderResponse struct {
	ID             int64  `json:"id"`
	PaymentID      string `json:"payment_id"`
	Status         int32  `json:"status"`
	Amount         int64  `json:"amount"`
	AmountPaid     int64  `json:"amount_paid"`
	AmountToPay    int64  `json:"amount_to_pay"`
	Address        string `json:"address"`
	KeychainID     int64  `json:"keychain_id"`
	LastKeychainID int64  `json:"last_keychain_id"`
	RedirectTo     string `json:"after_payment_redirect_to,omitempty"`
}

func newOrderResponse(r *http.Request, order data.Order, lastKeychainID int64) orderResponse {
	return orderResponse{
		ID:             order.ID,
		PaymentID:      order.PaymentID,
		Status:         order.Status,
		Amount:         order.Amount,
		AmountPaid:     order.AmountPaid,
		AmountToPay:    Engine(r).AmountToPay(order),
		Address:        order.Address,
		KeychainID:     order.KeychainID,
		LastKeychainID: lastKeychainID,
		RedirectTo:     order.RedirectTo.String,
	}
}

func renderErr(w http.ResponseWriter, status int, detail string) {
	ape.RenderErr(w, &jsonapi.ErrorObject{
		Status: strconv.Itoa(status),
		Title:  http.StatusText(status),
		Detail: detail,
	})
}

// renderValidationErr reports per-field reasons with a 409.
func renderValidationErr(w http.ResponseWriter, errs validation.Errors) {
	objs := make([]*jsonapi.ErrorObject, 0, len(errs))
	for field, err := range errs {
		objs = append(objs, &jsonapi.ErrorObject{
			Status: strconv.Itoa(http.StatusConflict),
			Title:  http.StatusText(http.StatusConflict),
			Detail: field + " " + err.Error(),
		})
	}
	ape.RenderErr(w, objs...)
}
