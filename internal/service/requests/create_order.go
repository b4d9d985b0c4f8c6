package requests

import (
	"encoding/json"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

// CreateOrder is the merchant-facing order creation payload. Amount is
// in minor units; zero means "accept any amount". KeychainID may be
// supplied to reuse an existing derivation slot.
type CreateOrder struct {
	Amount       json.Number `json:"amount"`
	KeychainID   int64       `json:"keychain_id"`
	Description  string      `json:"description"`
	Data         string      `json:"data"`
	CallbackData string      `json:"callback_data"`
	RedirectTo   string      `json:"after_payment_redirect_to"`
}

func NewCreateOrder(r *http.Request) (CreateOrder, error) {
	var req CreateOrder
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, validation.Errors{"/": errors.Wrap(err, "failed to decode body")}
	}
	return req, req.validate()
}

func (r CreateOrder) validate() error {
	return validation.Errors{
		"amount": validation.Validate(r.Amount, validation.Required,
			validation.By(isNonNegativeInteger)),
		"description": validation.Validate(r.Description, validation.Length(0, 255)),
	}.Filter()
}

// AmountMinor returns the validated amount in minor units.
func (r CreateOrder) AmountMinor() int64 {
	n, _ := strconv.ParseInt(r.Amount.String(), 10, 64)
	return n
}

func isNonNegativeInteger(value interface{}) error {
	n, ok := value.(json.Number)
	if !ok {
		return errors.New("is not numeric")
	}
	v, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return errors.New("is not numeric")
	}
	if v < 0 {
		return errors.New("is less than 0")
	}
	return nil
}
