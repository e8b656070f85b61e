package engine

import (
	"testing"
	"time"

	"github.com/aliaunction/auction-engine/pkg/types"
	"github.com/peterldowns/testy/check"
)

func TestResolveTimeStatus(t *testing.T) {
	now := time.Now()
	start := now.Add(time.Hour)

	upcoming := types.Auction{ScheduledStart: &start, EndTime: now.Add(2 * time.Hour), IsActive: true}
	check.Equal(t, types.StatusUpcoming, ResolveTimeStatus(upcoming, now))

	live := types.Auction{EndTime: now.Add(time.Hour), IsActive: true}
	check.Equal(t, types.StatusLive, ResolveTimeStatus(live, now))

	ended := types.Auction{EndTime: now.Add(-time.Minute), IsActive: true}
	check.Equal(t, types.StatusEnded, ResolveTimeStatus(ended, now))

	// Deactivated counts as ended no matter the clock.
	closed := types.Auction{EndTime: now.Add(time.Hour), IsActive: false}
	check.Equal(t, types.StatusEnded, ResolveTimeStatus(closed, now))
}

func TestResolveTimeStatus_Boundaries(t *testing.T) {
	now := time.Now()
	start := now

	// At the exact scheduled start the auction is live, not upcoming.
	auction := types.Auction{ScheduledStart: &start, EndTime: now.Add(time.Hour), IsActive: true}
	check.Equal(t, types.StatusLive, ResolveTimeStatus(auction, now))

	// At the exact end time the auction is ended.
	auction = types.Auction{EndTime: now, IsActive: true}
	check.Equal(t, types.StatusEnded, ResolveTimeStatus(auction, now))
}

func TestBiddable(t *testing.T) {
	now := time.Now()

	auction := types.Auction{EndTime: now.Add(time.Hour), IsActive: true, WorkflowStatus: types.WorkflowLive}
	check.True(t, Biddable(auction, now))

	// Time-live but workflow pending is not biddable.
	auction.WorkflowStatus = types.WorkflowPending
	check.False(t, Biddable(auction, now))

	// Workflow-live but ended is not biddable.
	auction.WorkflowStatus = types.WorkflowLive
	auction.EndTime = now.Add(-time.Minute)
	check.False(t, Biddable(auction, now))

	// Neither axis live.
	auction.WorkflowStatus = types.WorkflowRejected
	check.False(t, Biddable(auction, now))
}

func TestCountdownSeconds(t *testing.T) {
	now := time.Now()

	live := types.Auction{EndTime: now.Add(90 * time.Second), IsActive: true}
	check.Equal(t, int64(90), CountdownSeconds(live, now))

	start := now.Add(45 * time.Second)
	upcoming := types.Auction{ScheduledStart: &start, EndTime: now.Add(time.Hour), IsActive: true}
	check.Equal(t, int64(45), CountdownSeconds(upcoming, now))

	ended := types.Auction{EndTime: now.Add(-time.Minute)}
	check.Equal(t, int64(0), CountdownSeconds(ended, now))
}
