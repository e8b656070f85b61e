package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Suspended bool      `json:"suspended"`
}

// TimeStatus is derived from stored facts at read time and never persisted.
type TimeStatus string

const (
	StatusUpcoming TimeStatus = "UPCOMING"
	StatusLive     TimeStatus = "LIVE"
	StatusEnded    TimeStatus = "ENDED"
)

// WorkflowStatus is the moderation axis, independent of TimeStatus.
type WorkflowStatus string

const (
	WorkflowDraft    WorkflowStatus = "DRAFT"
	WorkflowPending  WorkflowStatus = "PENDING"
	WorkflowLive     WorkflowStatus = "LIVE"
	WorkflowRejected WorkflowStatus = "REJECTED"
)

type ReserveStatus string

const (
	ReserveNone   ReserveStatus = "NONE"
	ReserveMet    ReserveStatus = "MET"
	ReserveNotMet ReserveStatus = "NOT_MET"
)

type Auction struct {
	ID              uuid.UUID       `json:"id"`
	Title           string          `json:"title"`
	OwnerID         uuid.UUID       `json:"ownerId"`
	StartingPrice   decimal.Decimal `json:"startingPrice"`
	CurrentPrice    decimal.Decimal `json:"currentPrice"`
	BidIncrement    decimal.Decimal `json:"bidIncrement"`
	ScheduledStart  *time.Time      `json:"scheduledStart,omitempty"`
	EndTime         time.Time       `json:"endTime"`
	IsActive        bool            `json:"isActive"`
	ExtensionsUsed  int             `json:"extensionsUsed"`
	WorkflowStatus  WorkflowStatus  `json:"workflowStatus"`
	CurrentBidderID *uuid.UUID      `json:"currentBidderId,omitempty"`
	WinnerID        *uuid.UUID      `json:"winnerId,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Bid rows are append-only; PlacedAt is server time, never client time.
type Bid struct {
	ID        uuid.UUID       `json:"id"`
	AuctionID uuid.UUID       `json:"auctionId"`
	BidderID  uuid.UUID       `json:"bidderId"`
	Amount    decimal.Decimal `json:"amount"`
	PlacedAt  time.Time       `json:"placedAt"`
}

// AntiSnipingConfig is owned 1:1 by an auction. The process-wide default
// (AuctionID zero) is copied per auction on first use so ExtensionsUsed on
// the auction is governed by a stable budget.
type AntiSnipingConfig struct {
	AuctionID        uuid.UUID `json:"auctionId"`
	Enabled          bool      `json:"enabled"`
	ThresholdMinutes int       `json:"thresholdMinutes"`
	ExtensionMinutes int       `json:"extensionMinutes"`
	MaxExtensions    int       `json:"maxExtensions"`
}

type ReservePrice struct {
	AuctionID uuid.UUID       `json:"auctionId"`
	Amount    decimal.Decimal `json:"amount"`
}

// CommissionRule is process-wide; at most one row has IsActive set.
type CommissionRule struct {
	ID            uuid.UUID       `json:"id"`
	SellerPercent decimal.Decimal `json:"sellerPercent"`
	BuyerPercent  decimal.Decimal `json:"buyerPercent"`
	TransportNote string          `json:"transportNote"`
	IsActive      bool            `json:"isActive"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type EscrowStatus string

const (
	EscrowPendingPayment EscrowStatus = "PENDING_PAYMENT"
	EscrowPaid           EscrowStatus = "PAID"
	EscrowShipped        EscrowStatus = "SHIPPED"
	EscrowDelivered      EscrowStatus = "DELIVERED"
	EscrowCompleted      EscrowStatus = "COMPLETED"
)

type EscrowEvent string

const (
	EscrowEventPay     EscrowEvent = "pay"
	EscrowEventShip    EscrowEvent = "ship"
	EscrowEventDeliver EscrowEvent = "deliver"
)

// Escrow is created exactly once per auction, when a winning bid clears the
// reserve gate at close.
type Escrow struct {
	ID          uuid.UUID    `json:"id"`
	AuctionID   uuid.UUID    `json:"auctionId"`
	BuyerID     uuid.UUID    `json:"buyerId"`
	SellerID    uuid.UUID    `json:"sellerId"`
	Status      EscrowStatus `json:"status"`
	LastUpdated time.Time    `json:"lastUpdated"`
}

type Invoice struct {
	ID              uuid.UUID       `json:"id"`
	AuctionID       uuid.UUID       `json:"auctionId"`
	BuyerID         uuid.UUID       `json:"buyerId"`
	SellerID        uuid.UUID       `json:"sellerId"`
	Amount          decimal.Decimal `json:"amount"`
	BuyerFee        decimal.Decimal `json:"buyerFee"`
	SellerFee       decimal.Decimal `json:"sellerFee"`
	TransportCharge decimal.Decimal `json:"transportCharge"`
	CreatedAt       time.Time       `json:"createdAt"`
}
