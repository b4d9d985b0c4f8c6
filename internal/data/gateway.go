package data

import "database/sql"

type Gateways interface {
	Get(id int64) (*Gateway, error)
	ByHashedID(hashedID string) (*Gateway, error)
	// BumpKeychainID atomically increments last_keychain_id and returns
	// the new value.
	BumpKeychainID(id int64) (int64, error)
}

type Gateway struct {
	ID                    int64          `db:"id"`
	HashedID              sql.NullString `db:"hashed_id"`
	Name                  string         `db:"name"`
	Secret                string         `db:"secret"`
	ConfirmationsRequired int64          `db:"confirmations_required"`
	LastKeychainID        int64          `db:"last_keychain_id"`
	Active                bool           `db:"active"`
	CheckSignature        bool           `db:"check_signature"`
	CallbackURL           sql.NullString `db:"callback_url"`
	// ExpirationPeriod is in seconds; zero falls back to the configured
	// default.
	ExpirationPeriod sql.NullInt64 `db:"orders_expiration_period"`
}
