package data

import (
	"database/sql"
	"time"
)

type Transactions interface {
	// Upsert inserts the transaction or updates it by the (order_id, tid)
	// pair. Rows are never deleted.
	Upsert(Transaction) error
	SelectByOrder(orderID int64) ([]Transaction, error)
}

type Transaction struct {
	ID            int64         `structs:"-" db:"id"`
	OrderID       int64         `structs:"order_id" db:"order_id"`
	TID           string        `structs:"tid" db:"tid"`
	Amount        int64         `structs:"amount" db:"amount"`
	Confirmations sql.NullInt64 `structs:"confirmations,omitempty,omitnested" db:"confirmations"`
	BlockHeight   sql.NullInt64 `structs:"block_height,omitempty,omitnested" db:"block_height"`
	CreatedAt     time.Time     `structs:"-" db:"created_at"`
	UpdatedAt     sql.NullTime  `structs:"-" db:"updated_at"`
}
