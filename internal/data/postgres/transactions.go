package postgres

import (
	"github.com/Masterminds/squirrel"
	"github.com/fatih/structs"
	"github.com/straight-pay/gateway-svc/internal/data"
	"gitlab.com/distributed_lab/kit/pgdb"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

const transactionsTable = "transactions"

type transactions struct {
	db *pgdb.DB
}

func NewTransactions(db *pgdb.DB) data.Transactions {
	return transactions{db: db}
}

func (q transactions) Upsert(tx data.Transaction) error {
	stmt := squirrel.Insert(transactionsTable).SetMap(structs.Map(tx)).
		Suffix(`ON CONFLICT (order_id, tid) DO UPDATE SET
			amount = EXCLUDED.amount,
			confirmations = EXCLUDED.confirmations,
			block_height = EXCLUDED.block_height,
			updated_at = now()`)
	err := q.db.Exec(stmt)
	return errors.Wrap(err, "failed to upsert transaction")
}

func (q transactions) SelectByOrder(orderID int64) ([]data.Transaction, error) {
	var result []data.Transaction
	stmt := squirrel.Select("*").From(transactionsTable).
		Where(squirrel.Eq{"order_id": orderID})

	if err := q.db.Select(&result, stmt); err != nil {
		return nil, errors.Wrap(err, "failed to select accepted transactions")
	}
	return result, nil
}
