package engine

import (
	"time"

	apperrors "github.com/aliaunction/auction-engine/pkg/errors"
	"github.com/aliaunction/auction-engine/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValidateBid runs the bid predicate chain in a fixed order, first failure
// wins: amount positive, no self-bid, workflow live, time-status live, end
// time not passed, bidder not suspended, amount clears the price floor.
// Pure: no side effects, no storage access.
func ValidateBid(auction types.Auction, bidderID uuid.UUID, suspended bool, amount decimal.Decimal, now time.Time) error {
	if !amount.IsPositive() {
		return apperrors.ErrAmountNotPositive
	}

	if bidderID == auction.OwnerID {
		return apperrors.ErrSelfBid
	}

	if auction.WorkflowStatus != types.WorkflowLive {
		return apperrors.ErrAuctionNotLive
	}

	switch ResolveTimeStatus(auction, now) {
	case types.StatusUpcoming:
		return apperrors.ErrAuctionNotLive
	case types.StatusEnded:
		return apperrors.ErrAuctionEnded
	}

	if !now.Before(auction.EndTime) {
		return apperrors.ErrAuctionEnded
	}

	if suspended {
		return apperrors.ErrBidderSuspended
	}

	// Price floor: strictly above the current price, or current price plus
	// the auction's increment when one is set.
	if auction.BidIncrement.IsPositive() {
		floor := auction.CurrentPrice.Add(auction.BidIncrement)
		if amount.LessThan(floor) {
			return apperrors.ErrBidTooLow.WithLimit(floor.StringFixed(2))
		}
	} else if !amount.GreaterThan(auction.CurrentPrice) {
		return apperrors.ErrBidTooLow.WithLimit(auction.CurrentPrice.StringFixed(2))
	}

	return nil
}
