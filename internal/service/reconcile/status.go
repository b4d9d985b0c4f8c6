package reconcile

import "github.com/straight-pay/gateway-svc/internal/data"

// statusPartial is the internal sentinel for a partial payment. It is
// normalized to data.StatusUnderpaid before anything is persisted; the
// remap is a fixed rule, no further semantics should be read into it.
const statusPartial int32 = -3

// statusFor derives a tentative status from the credited sum. An order
// with Amount == 0 is a donation: any nonzero payment satisfies it.
func statusFor(amount, paid int64) int32 {
	switch {
	case paid == 0:
		return data.StatusNew
	case amount == 0 || paid == amount:
		return data.StatusPaid
	case paid < amount:
		return statusPartial
	default:
		return data.StatusOverpaid
	}
}

func normalizeStatus(status int32) int32 {
	if status == statusPartial {
		return data.StatusUnderpaid
	}
	return status
}

// AmountToPay is the merchant-facing remainder. Anything owed below the
// configured minimum spend floor is clamped up to the floor, since the
// ledger would not relay a smaller spend. Display only: it never affects
// the paid/unpaid determination.
func (e *Engine) AmountToPay(order data.Order) int64 {
	owed := order.Amount - order.AmountPaid
	if owed <= 0 {
		return 0
	}
	if owed < e.minAccepted {
		return e.minAccepted
	}
	return owed
}
