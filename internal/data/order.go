package data

import (
	"database/sql"
	"time"
)

// Order statuses. The order of values matters: everything below StatusPaid
// is considered active, everything at StatusPaid and above is final.
const (
	StatusNew         int32 = 0
	StatusUnconfirmed int32 = 1
	StatusPaid        int32 = 2
	StatusUnderpaid   int32 = 3
	StatusOverpaid    int32 = 4
	StatusExpired     int32 = 5
	StatusCanceled    int32 = 6
)

var statusNames = map[int32]string{
	StatusNew:         "new",
	StatusUnconfirmed: "unconfirmed",
	StatusPaid:        "paid",
	StatusUnderpaid:   "underpaid",
	StatusOverpaid:    "overpaid",
	StatusExpired:     "expired",
	StatusCanceled:    "canceled",
}

func StatusName(status int32) string {
	if n, ok := statusNames[status]; ok {
		return n
	}
	return "unknown"
}

type Orders interface {
	Get(id int64) (*Order, error)
	GetByPaymentID(paymentID string) (*Order, error)
	Insert(Order) (*Order, error)
	Update(*Order) error
	SetStatus(id int64, status int32) error
	// SiblingHeights returns block_height_created_at of every other order
	// sharing the (gateway, address) pair, in a single snapshot query.
	SiblingHeights(Order) ([]sql.NullInt64, error)
	CountActive(gatewayID int64, address string) (int64, error)
	SelectActive() ([]Order, error)
	NextID() (int64, error)
}

type Order struct {
	// ID surrogate key, immutable once persisted
	ID                   int64          `structs:"-" db:"id"`
	GatewayID            int64          `structs:"gateway_id" db:"gateway_id"`
	PaymentID            string         `structs:"payment_id" db:"payment_id"`
	Address              string         `structs:"address" db:"address"`
	KeychainID           int64          `structs:"keychain_id" db:"keychain_id"`
	Amount               int64          `structs:"amount" db:"amount"`
	AmountPaid           int64          `structs:"amount_paid" db:"amount_paid"`
	Status               int32          `structs:"status" db:"status"`
	BlockHeightCreatedAt sql.NullInt64  `structs:"block_height_created_at,omitempty,omitnested" db:"block_height_created_at"`
	Description          sql.NullString `structs:"description,omitempty,omitnested" db:"description"`
	Data                 sql.NullString `structs:"data,omitempty,omitnested" db:"data"`
	CallbackData         sql.NullString `structs:"callback_data,omitempty,omitnested" db:"callback_data"`
	CallbackResponse     sql.NullString `structs:"callback_response,omitempty,omitnested" db:"callback_response"`
	RedirectTo           sql.NullString `structs:"after_payment_redirect_to,omitempty,omitnested" db:"after_payment_redirect_to"`
	CreatedAt            time.Time      `structs:"created_at,omitnested" db:"created_at"`
	UpdatedAt            sql.NullTime   `structs:"updated_at,omitempty,omitnested" db:"updated_at"`
}

// Final reports whether the payment window of the order has already closed.
func (o Order) Final() bool {
	return o.Status >= StatusPaid
}

func (o Order) Cancelable() bool {
	return o.Status == StatusNew
}
