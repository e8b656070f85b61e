package engine

import (
	"github.com/aliaunction/auction-engine/pkg/types"
)

// ResolveReserveStatus reports whether the auction's top bid satisfies the
// seller's reserve. A nil reserve means the auction has none.
func ResolveReserveStatus(auction types.Auction, reserve *types.ReservePrice) types.ReserveStatus {
	if reserve == nil {
		return types.ReserveNone
	}
	if auction.CurrentPrice.GreaterThanOrEqual(reserve.Amount) {
		return types.ReserveMet
	}
	return types.ReserveNotMet
}
