package engine

import (
	"testing"

	"github.com/aliaunction/auction-engine/pkg/types"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func TestResolveReserveStatus(t *testing.T) {
	auction := types.Auction{CurrentPrice: decimal.NewFromInt(900)}

	check.Equal(t, types.ReserveNone, ResolveReserveStatus(auction, nil))

	reserve := &types.ReservePrice{Amount: decimal.NewFromInt(1000)}
	check.Equal(t, types.ReserveNotMet, ResolveReserveStatus(auction, reserve))

	// Meeting the reserve exactly counts as met.
	auction.CurrentPrice = decimal.NewFromInt(1000)
	check.Equal(t, types.ReserveMet, ResolveReserveStatus(auction, reserve))

	auction.CurrentPrice = decimal.NewFromInt(1100)
	check.Equal(t, types.ReserveMet, ResolveReserveStatus(auction, reserve))
}
