package postgres

import (
	"database/sql"

	"github.com/Masterminds/squirrel"
	"github.com/fatih/structs"
	"github.com/straight-pay/gateway-svc/internal/data"
	"gitlab.com/distributed_lab/kit/pgdb"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

const ordersTable = "orders"

type orders struct {
	db *pgdb.DB
}

func NewOrders(db *pgdb.DB) data.Orders {
	return orders{db: db}
}

func (q orders) Get(id int64) (*data.Order, error) {
	return q.get(squirrel.Eq{"id": id})
}

func (q orders) GetByPaymentID(paymentID string) (*data.Order, error) {
	return q.get(squirrel.Eq{"payment_id": paymentID})
}

func (q orders) get(where squirrel.Eq) (*data.Order, error) {
	var result data.Order
	stmt := squirrel.Select("*").From(ordersTable).Where(where)

	if err := q.db.Get(&result, stmt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to select order")
	}

	return &result, nil
}

func (q orders) Insert(order data.Order) (*data.Order, error) {
	var result data.Order
	stmt := squirrel.Insert(ordersTable).SetMap(structs.Map(order)).
		Suffix("RETURNING *")

	if err := q.db.Get(&result, stmt); err != nil {
		return nil, errors.Wrap(err, "failed to insert order")
	}

	return &result, nil
}

func (q orders) Update(order *data.Order) error {
	stmt := squirrel.Update(ordersTable).
		SetMap(map[string]interface{}{
			"status":            order.Status,
			"amount_paid":       order.AmountPaid,
			"callback_response": order.CallbackResponse,
			"updated_at":        squirrel.Expr("now()"),
		}).
		Where(squirrel.Eq{"id": order.ID})
	err := q.db.Exec(stmt)
	return errors.Wrap(err, "failed to update order")
}

func (q orders) SetStatus(id int64, status int32) error {
	stmt := squirrel.Update(ordersTable).
		SetMap(map[string]interface{}{"status": status, "updated_at": squirrel.Expr("now()")}).
		Where(squirrel.Eq{"id": id})
	err := q.db.Exec(stmt)
	return errors.Wrap(err, "failed to update order status")
}

func (q orders) SiblingHeights(order data.Order) ([]sql.NullInt64, error) {
	var rows []struct {
		Height sql.NullInt64 `db:"block_height_created_at"`
	}
	stmt := squirrel.Select("block_height_created_at").From(ordersTable).
		Where(squirrel.Eq{"gateway_id": order.GatewayID, "address": order.Address}).
		Where(squirrel.NotEq{"id": order.ID})

	if err := q.db.Select(&rows, stmt); err != nil {
		return nil, errors.Wrap(err, "failed to select same-address orders")
	}

	heights := make([]sql.NullInt64, 0, len(rows))
	for _, r := range rows {
		heights = append(heights, r.Height)
	}
	return heights, nil
}

func (q orders) CountActive(gatewayID int64, address string) (int64, error) {
	var result struct {
		Count int64 `db:"count"`
	}
	stmt := squirrel.Select("count(*) AS count").From(ordersTable).
		Where(squirrel.Eq{"gateway_id": gatewayID, "address": address}).
		Where(squirrel.Lt{"status": data.StatusPaid})

	if err := q.db.Get(&result, stmt); err != nil {
		return 0, errors.Wrap(err, "failed to count active orders")
	}
	return result.Count, nil
}

func (q orders) SelectActive() ([]data.Order, error) {
	var result []data.Order
	stmt := squirrel.Select("*").From(ordersTable).
		Where(squirrel.Lt{"status": data.StatusPaid})

	if err := q.db.Select(&result, stmt); err != nil {
		return nil, errors.Wrap(err, "failed to select active orders")
	}
	return result, nil
}

func (q orders) NextID() (int64, error) {
	var result struct {
		Next int64 `db:"next"`
	}
	stmt := squirrel.Select("coalesce(max(id), 0) + 1 AS next").From(ordersTable)

	if err := q.db.Get(&result, stmt); err != nil {
		return 0, errors.Wrap(err, "failed to select next order id")
	}
	return result.Next, nil
}
