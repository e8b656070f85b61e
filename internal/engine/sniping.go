package engine

import (
	"time"

	"github.com/aliaunction/auction-engine/pkg/types"
	"github.com/google/uuid"
)

// MaybeExtend decides whether a bid arriving at arrivalTime pushes the
// auction's end time out. Each qualifying bid consumes exactly one extension
// from the auction's budget, however close to the edge it landed. Callers
// must invoke this inside the same atomic unit as the bid acceptance so the
// decision is made against post-lock state.
func MaybeExtend(auction types.Auction, cfg types.AntiSnipingConfig, arrivalTime time.Time) (time.Time, bool) {
	if !cfg.Enabled || auction.ExtensionsUsed >= cfg.MaxExtensions {
		return auction.EndTime, false
	}

	threshold := time.Duration(cfg.ThresholdMinutes) * time.Minute
	if auction.EndTime.Sub(arrivalTime) > threshold {
		return auction.EndTime, false
	}

	return auction.EndTime.Add(time.Duration(cfg.ExtensionMinutes) * time.Minute), true
}

// configFor returns cfg when the auction has its own row, or a per-auction
// copy of the process-wide default otherwise. The copy gets persisted by the
// caller so the extension budget stays trackable from then on.
func configFor(auctionID uuid.UUID, cfg *types.AntiSnipingConfig, defaults types.AntiSnipingConfig) (types.AntiSnipingConfig, bool) {
	if cfg != nil {
		return *cfg, false
	}
	copied := defaults
	copied.AuctionID = auctionID
	return copied, true
}
