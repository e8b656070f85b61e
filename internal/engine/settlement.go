package engine

import (
	"github.com/aliaunction/auction-engine/pkg/types"
)

// Transition advances an escrow status by one settlement event. The machine
// is strictly linear: pay, ship, deliver, with DELIVERED collapsing straight
// into COMPLETED because no separate confirmation step exists for delivery
// alone. Any other (status, event) pair returns the unchanged status and
// ok=false, never an error, so callers can probe validity by attempting the
// transition and retries stay idempotent.
func Transition(status types.EscrowStatus, event types.EscrowEvent) (types.EscrowStatus, bool) {
	switch {
	case status == types.EscrowPendingPayment && event == types.EscrowEventPay:
		return types.EscrowPaid, true
	case status == types.EscrowPaid && event == types.EscrowEventShip:
		return types.EscrowShipped, true
	case status == types.EscrowShipped && event == types.EscrowEventDeliver:
		return types.EscrowCompleted, true
	default:
		return status, false
	}
}
