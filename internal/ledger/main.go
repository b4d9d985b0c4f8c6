// Package ledger defines the boundary to the external blockchain
// explorer: observed transactions for an address and the current chain
// height. Address derivation stays behind AddressProvider; the service
// never touches wallet keys itself.
package ledger

import "context"

// Transaction is a ledger transaction as observed by an explorer,
// already reduced to the outputs credited to a single address.
// BlockHeight <= 0 means the transaction is still in the mempool.
type Transaction struct {
	TID           string
	Amount        int64
	Confirmations int64
	BlockHeight   int64
}

type Adapter interface {
	FetchTransactions(ctx context.Context, address string) ([]Transaction, error)
	Height(ctx context.Context) (int64, error)
}

type AddressProvider interface {
	NewAddress(keychainID int64) (string, error)
}
