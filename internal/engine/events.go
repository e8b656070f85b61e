package engine

import (
	"time"

	"github.com/aliaunction/auction-engine/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Broadcaster receives the facts the engine emits. The websocket layer fans
// them out to connected clients; tests plug in a recorder. The engine never
// formats user-visible messages.
type Broadcaster interface {
	Publish(event Event)
}

type Event interface {
	EventType() string
}

type BidAccepted struct {
	AuctionID uuid.UUID       `json:"auctionId"`
	BidderID  uuid.UUID       `json:"bidderId"`
	Amount    decimal.Decimal `json:"amount"`
}

func (BidAccepted) EventType() string { return "bid_accepted" }

type AuctionExtended struct {
	AuctionID  uuid.UUID `json:"auctionId"`
	NewEndTime time.Time `json:"newEndTime"`
}

func (AuctionExtended) EventType() string { return "auction_extended" }

type AuctionClosed struct {
	AuctionID uuid.UUID  `json:"auctionId"`
	WinnerID  *uuid.UUID `json:"winnerId,omitempty"`
}

func (AuctionClosed) EventType() string { return "auction_closed" }

type EscrowTransitioned struct {
	EscrowID uuid.UUID          `json:"escrowId"`
	From     types.EscrowStatus `json:"from"`
	To       types.EscrowStatus `json:"to"`
}

func (EscrowTransitioned) EventType() string { return "escrow_transitioned" }

// NopBroadcaster drops every event.
type NopBroadcaster struct{}

func (NopBroadcaster) Publish(Event) {}
