package reconcile

import (
	"database/sql"
	"math"
)

// AmbiguityError means transaction ownership between same-address
// orders cannot be determined safely. It is never resolved by guessing.
type AmbiguityError struct {
	reason string
}

func (e *AmbiguityError) Error() string {
	return "reconciliation ambiguity: " + e.reason
}

// IsAmbiguity reports whether err is an AmbiguityError.
func IsAmbiguity(err error) bool {
	_, ok := err.(*AmbiguityError)
	return ok
}

// allowedWindow computes the inclusive block-height window a transaction
// must be mined in to belong to the order. A transaction must appear
// after the order's creation height; when same-address orders exist,
// before or at the earliest of their creation heights. Any sibling with
// an undefined, equal, or preceding height makes attribution ambiguous.
func allowedWindow(own sql.NullInt64, siblings []sql.NullInt64) (min, max int64, err error) {
	if !own.Valid || own.Int64 <= 0 {
		return 0, 0, &AmbiguityError{reason: "undefined block_height_created_at"}
	}

	min = own.Int64 + 1
	max = math.MaxInt64

	for _, sibling := range siblings {
		switch {
		case !sibling.Valid || sibling.Int64 <= 0:
			return 0, 0, &AmbiguityError{reason: "same-address order with undefined block_height_created_at"}
		case sibling.Int64 == own.Int64:
			return 0, 0, &AmbiguityError{reason: "same-address order with identical block_height_created_at"}
		case sibling.Int64 < own.Int64:
			return 0, 0, &AmbiguityError{reason: "same-address order with preceding block_height_created_at"}
		case sibling.Int64 < max:
			max = sibling.Int64
		}
	}
	return min, max, nil
}
