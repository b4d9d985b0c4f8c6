package postgres

import (
	"database/sql"

	"github.com/Masterminds/squirrel"
	"github.com/straight-pay/gateway-svc/internal/data"
	"gitlab.com/distributed_lab/kit/pgdb"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

const gatewaysTable = "gateways"

type gateways struct {
	db *pgdb.DB
}

func NewGateways(db *pgdb.DB) data.Gateways {
	return gateways{db: db}
}

func (q gateways) Get(id int64) (*data.Gateway, error) {
	return q.get(squirrel.Eq{"id": id})
}

func (q gateways) ByHashedID(hashedID string) (*data.Gateway, error) {
	return q.get(squirrel.Eq{"hashed_id": hashedID})
}

func (q gateways) get(where squirrel.Eq) (*data.Gateway, error) {
	var result data.Gateway
	stmt := squirrel.Select("*").From(gatewaysTable).Where(where)

	if err := q.db.Get(&result, stmt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to select gateway")
	}

	return &result, nil
}

func (q gateways) BumpKeychainID(id int64) (int64, error) {
	var result struct {
		LastKeychainID int64 `db:"last_keychain_id"`
	}
	stmt := squirrel.Update(gatewaysTable).
		Set("last_keychain_id", squirrel.Expr("last_keychain_id + 1")).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING last_keychain_id")

	if err := q.db.Get(&result, stmt); err != nil {
		return 0, errors.Wrap(err, "failed to bump keychain id")
	}
	return result.LastKeychainID, nil
}
