package engine

import (
	"time"

	"github.com/aliaunction/auction-engine/pkg/types"
)

// ResolveTimeStatus derives the time axis of an auction from stored facts.
// No status field is persisted for this; it is recomputed on every read.
func ResolveTimeStatus(auction types.Auction, now time.Time) types.TimeStatus {
	// If a schedule exists, check the start time first.
	if auction.ScheduledStart != nil && now.Before(*auction.ScheduledStart) {
		return types.StatusUpcoming
	}

	if auction.IsActive && now.Before(auction.EndTime) {
		return types.StatusLive
	}

	return types.StatusEnded
}

// Biddable combines the two independent status axes: an auction accepts
// bids only when moderation says LIVE and the clock says LIVE.
func Biddable(auction types.Auction, now time.Time) bool {
	return auction.WorkflowStatus == types.WorkflowLive &&
		ResolveTimeStatus(auction, now) == types.StatusLive
}

// CountdownSeconds returns whole seconds until the next time boundary:
// scheduled start for upcoming auctions, end time for live ones, zero after.
func CountdownSeconds(auction types.Auction, now time.Time) int64 {
	if auction.ScheduledStart != nil && now.Before(*auction.ScheduledStart) {
		return int64(auction.ScheduledStart.Sub(now).Seconds())
	}
	if now.Before(auction.EndTime) {
		return int64(auction.EndTime.Sub(now).Seconds())
	}
	return 0
}
