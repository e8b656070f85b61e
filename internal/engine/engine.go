package engine

import (
	"context"
	"time"

	"github.com/aliaunction/auction-engine/internal/database"
	apperrors "github.com/aliaunction/auction-engine/pkg/errors"
	"github.com/aliaunction/auction-engine/pkg/types"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxBidAttempts bounds internal retries on serialization conflicts before
// ErrConcurrentConflict is surfaced to the caller.
const maxBidAttempts = 3

// Engine is the only entry point callers use. It composes the validator,
// the anti-sniping policy, the reserve gate, the commission calculator and
// the settlement machine into explicit synchronous steps; no side effect
// happens as a hidden reaction to a save.
type Engine struct {
	db           database.Service
	broadcaster  Broadcaster
	defaults     types.AntiSnipingConfig
	minIncrement decimal.Decimal
	now          func() time.Time
}

type Option func(*Engine)

func WithBroadcaster(b Broadcaster) Option {
	return func(e *Engine) { e.broadcaster = b }
}

// WithClock injects the time source. Tests use it to pin the clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithAntiSnipingDefaults sets the process-wide singleton config applied to
// auctions that have no per-auction row yet.
func WithAntiSnipingDefaults(cfg types.AntiSnipingConfig) Option {
	return func(e *Engine) { e.defaults = cfg }
}

// WithMinIncrement sets the process-wide minimum bid increment, applied to
// auctions that do not carry their own.
func WithMinIncrement(increment decimal.Decimal) Option {
	return func(e *Engine) { e.minIncrement = increment }
}

func New(db database.Service, opts ...Option) *Engine {
	e := &Engine{
		db:          db,
		broadcaster: NopBroadcaster{},
		now:         time.Now,
		defaults: types.AntiSnipingConfig{
			Enabled:          true,
			ThresholdMinutes: 5,
			ExtensionMinutes: 5,
			MaxExtensions:    10,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetBroadcaster wires the event sink after construction, since the
// transport layer that implements it usually needs the engine first.
func (e *Engine) SetBroadcaster(b Broadcaster) {
	e.broadcaster = b
}

// Now returns the engine's current time. Transport layers pass it as the
// authoritative arrival time so client clocks never matter.
func (e *Engine) Now() time.Time {
	return e.now()
}

type BidResult struct {
	Bid        types.Bid       `json:"bid"`
	NewPrice   decimal.Decimal `json:"newPrice"`
	Extended   bool            `json:"extended"`
	NewEndTime time.Time       `json:"newEndTime"`
}

type StatusResult struct {
	TimeStatus       types.TimeStatus     `json:"timeStatus"`
	WorkflowStatus   types.WorkflowStatus `json:"workflowStatus"`
	ReserveStatus    types.ReserveStatus  `json:"reserveStatus"`
	CountdownSeconds int64                `json:"countdownSeconds"`
}

// PlaceBid validates and records a bid in one atomic unit: the bid row is
// persisted, the price advances, and the anti-sniping policy runs against
// the post-lock state, all in the same transaction. Conflicting concurrent
// writers are retried a bounded number of times.
func (e *Engine) PlaceBid(ctx context.Context, auctionID, bidderID uuid.UUID, amount decimal.Decimal, arrivalTime time.Time) (BidResult, error) {
	if arrivalTime.IsZero() {
		arrivalTime = e.now()
	}

	bidder, err := e.db.GetUserByID(ctx, bidderID)
	if err != nil {
		return BidResult{}, err
	}

	var result BidResult
	err = e.withConflictRetry(func() error {
		tx, err := e.db.BeginTx(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		auction, err := e.db.GetAuctionForUpdateTx(ctx, tx, auctionID)
		if err != nil {
			return err
		}

		// Validation sees the process-wide increment when the auction has
		// none of its own; persisted state keeps the auction's own value.
		candidate := auction
		if !candidate.BidIncrement.IsPositive() {
			candidate.BidIncrement = e.minIncrement
		}
		if err := ValidateBid(candidate, bidderID, bidder.Suspended, amount, arrivalTime); err != nil {
			return err
		}

		cfgRow, err := e.db.GetAntiSnipingConfigTx(ctx, tx, auctionID)
		if err != nil {
			return err
		}
		cfg, copied := configFor(auctionID, cfgRow, e.defaults)
		if copied {
			// Persist the per-auction copy in the same transaction so the
			// extension budget is tracked against a stable config.
			if err := e.db.CreateAntiSnipingConfigTx(ctx, tx, cfg); err != nil {
				return err
			}
		}

		// Bid row goes in before the price advances.
		bid, err := e.db.CreateBidTx(ctx, tx, types.Bid{
			AuctionID: auctionID,
			BidderID:  bidderID,
			Amount:    amount,
			PlacedAt:  arrivalTime,
		})
		if err != nil {
			return err
		}

		auction.CurrentPrice = amount
		auction.CurrentBidderID = &bidderID

		newEndTime, extended := MaybeExtend(auction, cfg, arrivalTime)
		if extended {
			auction.EndTime = newEndTime
			auction.ExtensionsUsed++
		}

		if _, err := e.db.UpdateAuctionTx(ctx, tx, auction); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}

		result = BidResult{Bid: bid, NewPrice: amount, Extended: extended, NewEndTime: newEndTime}
		return nil
	})
	if err != nil {
		return BidResult{}, err
	}

	log.Debugf("Bid accepted on auction %s: %s by %s", auctionID, amount, bidderID)
	e.broadcaster.Publish(BidAccepted{AuctionID: auctionID, BidderID: bidderID, Amount: amount})
	if result.Extended {
		e.broadcaster.Publish(AuctionExtended{AuctionID: auctionID, NewEndTime: result.NewEndTime})
	}
	return result, nil
}

// GetStatus derives the three status axes for an auction at the given time.
func (e *Engine) GetStatus(ctx context.Context, auctionID uuid.UUID, now time.Time) (StatusResult, error) {
	auction, err := e.db.GetAuctionByID(ctx, auctionID)
	if err != nil {
		return StatusResult{}, err
	}
	reserve, err := e.db.GetReservePrice(ctx, auctionID)
	if err != nil {
		return StatusResult{}, err
	}
	return StatusResult{
		TimeStatus:       ResolveTimeStatus(auction, now),
		WorkflowStatus:   auction.WorkflowStatus,
		ReserveStatus:    ResolveReserveStatus(auction, reserve),
		CountdownSeconds: CountdownSeconds(auction, now),
	}, nil
}

// CalculateCommission computes buyer and seller fees from the single active
// commission rule. No active rule means zero fees, by design.
func (e *Engine) CalculateCommission(ctx context.Context, amount decimal.Decimal) (buyerFee, sellerFee decimal.Decimal, err error) {
	rule, err := e.db.GetActiveCommissionRule(ctx)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	buyerFee, sellerFee = CalculateFees(amount, rule)
	return buyerFee, sellerFee, nil
}

// TransitionEscrow drives one settlement step. Invalid transitions report
// ok=false without touching the escrow and without an error.
func (e *Engine) TransitionEscrow(ctx context.Context, escrowID uuid.UUID, event types.EscrowEvent) (types.EscrowStatus, bool, error) {
	var (
		from types.EscrowStatus
		to   types.EscrowStatus
		ok   bool
	)
	err := e.withConflictRetry(func() error {
		tx, err := e.db.BeginTx(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		escrow, err := e.db.GetEscrowForUpdateTx(ctx, tx, escrowID)
		if err != nil {
			return err
		}

		from = escrow.Status
		to, ok = Transition(escrow.Status, event)
		if !ok {
			return nil
		}

		escrow.Status = to
		if _, err := e.db.UpdateEscrowTx(ctx, tx, escrow); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return "", false, err
	}
	if !ok {
		return from, false, nil
	}

	log.Debugf("Escrow %s transitioned: %s -> %s", escrowID, from, to)
	e.broadcaster.Publish(EscrowTransitioned{EscrowID: escrowID, From: from, To: to})
	return to, true, nil
}

// CloseDueAuctions finalizes every active auction whose end time has
// passed: flips it inactive, runs the reserve gate once, designates the
// winner, and creates the escrow and invoice for a reserve-satisfying top
// bid. Returns how many auctions were closed.
func (e *Engine) CloseDueAuctions(ctx context.Context, now time.Time) (int, error) {
	ids, err := e.db.GetDueAuctionIDs(ctx, now)
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, id := range ids {
		if err := e.closeAuction(ctx, id, now); err != nil {
			log.Error("Error closing auction: ", "auction", id, "err", err)
			continue
		}
		closed++
	}
	return closed, nil
}

func (e *Engine) closeAuction(ctx context.Context, auctionID uuid.UUID, now time.Time) error {
	var event *AuctionClosed

	err := e.withConflictRetry(func() error {
		tx, err := e.db.BeginTx(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		auction, err := e.db.GetAuctionForUpdateTx(ctx, tx, auctionID)
		if err != nil {
			return err
		}
		// Re-check under the lock: a late bid may have extended the
		// deadline, or a concurrent worker may have closed it already.
		if !auction.IsActive || now.Before(auction.EndTime) {
			event = nil
			return nil
		}

		auction.IsActive = false

		reserve, err := e.db.GetReservePriceTx(ctx, tx, auctionID)
		if err != nil {
			return err
		}

		reserveStatus := ResolveReserveStatus(auction, reserve)
		winner := auction.CurrentBidderID

		if winner != nil && reserveStatus != types.ReserveNotMet {
			auction.WinnerID = winner
			if err := e.settleWinner(ctx, tx, auction, *winner); err != nil {
				return err
			}
		} else if winner != nil {
			// Top bid exists but the reserve was not met: no valid winner,
			// no escrow, no invoice.
			log.Debugf("Auction %s ended below reserve, winner invalidated", auctionID)
			winner = nil
		}

		if _, err := e.db.UpdateAuctionTx(ctx, tx, auction); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}

		event = &AuctionClosed{AuctionID: auctionID, WinnerID: winner}
		return nil
	})
	if err != nil {
		return err
	}

	if event != nil {
		e.broadcaster.Publish(*event)
	}
	return nil
}

// settleWinner creates the escrow and the commission invoice for a closed
// auction, inside the closing transaction. The escrow is created exactly
// once per auction.
func (e *Engine) settleWinner(ctx context.Context, tx database.Tx, auction types.Auction, winnerID uuid.UUID) error {
	existing, err := e.db.GetEscrowByAuctionTx(ctx, tx, auction.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	if _, err := e.db.CreateEscrowTx(ctx, tx, types.Escrow{
		AuctionID: auction.ID,
		BuyerID:   winnerID,
		SellerID:  auction.OwnerID,
		Status:    types.EscrowPendingPayment,
	}); err != nil {
		return err
	}

	rule, err := e.db.GetActiveCommissionRuleTx(ctx, tx)
	if err != nil {
		return err
	}
	buyerFee, sellerFee := CalculateFees(auction.CurrentPrice, rule)

	// Transport charges are paid by buyer directly to seller, so the
	// invoice carries none.
	_, err = e.db.CreateInvoiceTx(ctx, tx, types.Invoice{
		AuctionID:       auction.ID,
		BuyerID:         winnerID,
		SellerID:        auction.OwnerID,
		Amount:          auction.CurrentPrice,
		BuyerFee:        buyerFee,
		SellerFee:       sellerFee,
		TransportCharge: decimal.Zero,
	})
	return err
}

// withConflictRetry reruns fn on transient concurrency conflicts, up to
// maxBidAttempts, then surfaces ErrConcurrentConflict for the caller to
// retry with fresh state.
func (e *Engine) withConflictRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < maxBidAttempts; attempt++ {
		err = fn()
		if err == nil || !database.IsConflict(err) {
			return err
		}
		log.Debugf("Conflict on attempt %d, retrying", attempt+1)
	}
	return apperrors.ErrConcurrentConflict
}
