package database

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "github.com/aliaunction/auction-engine/pkg/errors"
	"github.com/aliaunction/auction-engine/pkg/types"
	"github.com/google/uuid"
)

// Memory is an in-process Service used by the test suite and by
// `database.driver: memory` dev mode. Each auction's mutable state is an
// arena guarded by its own mutex, acquired by the transaction that first
// reads it for update and released at Commit/Rollback. Writes are staged on
// the transaction and applied atomically at Commit.
type Memory struct {
	mu              sync.Mutex // guards maps and the lock registry
	auctions        map[uuid.UUID]types.Auction
	bids            map[uuid.UUID][]types.Bid
	snipingConfigs  map[uuid.UUID]types.AntiSnipingConfig
	reserves        map[uuid.UUID]types.ReservePrice
	rules           []types.CommissionRule
	escrows         map[uuid.UUID]types.Escrow
	escrowByAuction map[uuid.UUID]uuid.UUID
	invoices        map[uuid.UUID]types.Invoice
	users           map[uuid.UUID]types.User
	arenaLocks      map[uuid.UUID]*sync.Mutex
}

func NewMemory() *Memory {
	return &Memory{
		auctions:        make(map[uuid.UUID]types.Auction),
		bids:            make(map[uuid.UUID][]types.Bid),
		snipingConfigs:  make(map[uuid.UUID]types.AntiSnipingConfig),
		reserves:        make(map[uuid.UUID]types.ReservePrice),
		escrows:         make(map[uuid.UUID]types.Escrow),
		escrowByAuction: make(map[uuid.UUID]uuid.UUID),
		invoices:        make(map[uuid.UUID]types.Invoice),
		users:           make(map[uuid.UUID]types.User),
		arenaLocks:      make(map[uuid.UUID]*sync.Mutex),
	}
}

type memTx struct {
	s       *Memory
	held    map[uuid.UUID]*sync.Mutex
	pending []func()
	done    bool
}

func (t *memTx) lockArena(id uuid.UUID) {
	if _, ok := t.held[id]; ok {
		return
	}
	t.s.mu.Lock()
	lock, ok := t.s.arenaLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		t.s.arenaLocks[id] = lock
	}
	t.s.mu.Unlock()
	lock.Lock()
	t.held[id] = lock
}

func (t *memTx) stage(apply func()) {
	t.pending = append(t.pending, apply)
}

func (t *memTx) release() {
	for _, lock := range t.held {
		lock.Unlock()
	}
	t.held = nil
}

func (t *memTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.mu.Lock()
	for _, apply := range t.pending {
		apply()
	}
	t.s.mu.Unlock()
	t.release()
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.pending = nil
	t.release()
	return nil
}

func memTxOf(tx Tx) *memTx {
	return tx.(*memTx)
}

func (s *Memory) Health() map[string]string {
	return map[string]string{"status": "up", "driver": "memory"}
}

func (s *Memory) Close() error {
	return nil
}

// SEEDING HELPERS

func (s *Memory) CreateUser(user types.User) types.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	s.users[user.ID] = user
	return user
}

func (s *Memory) SetSuspended(userID uuid.UUID, suspended bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[userID]
	user.Suspended = suspended
	s.users[userID] = user
}

func (s *Memory) SetWorkflowStatus(auctionID uuid.UUID, status types.WorkflowStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	auction := s.auctions[auctionID]
	auction.WorkflowStatus = status
	s.auctions[auctionID] = auction
}

func (s *Memory) SetAntiSnipingConfig(cfg types.AntiSnipingConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snipingConfigs[cfg.AuctionID] = cfg
}

// InvoicesForAuction returns the invoices recorded for an auction, in no
// particular order.
func (s *Memory) InvoicesForAuction(auctionID uuid.UUID) []types.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	var invoices []types.Invoice
	for _, invoice := range s.invoices {
		if invoice.AuctionID == auctionID {
			invoices = append(invoices, invoice)
		}
	}
	return invoices
}

// USER METHODS

func (s *Memory) GetUserByEmail(_ context.Context, email string) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, apperrors.ErrUserNotFound
}

func (s *Memory) GetUserByID(_ context.Context, id uuid.UUID) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return types.User{}, apperrors.ErrUserNotFound
	}
	return user, nil
}

// AUCTION METHODS

func (s *Memory) GetCurrentAuctions(_ context.Context) ([]types.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var auctions []types.Auction
	for _, auction := range s.auctions {
		if auction.IsActive {
			auctions = append(auctions, auction)
		}
	}
	sort.Slice(auctions, func(i, j int) bool {
		return auctions[i].EndTime.Before(auctions[j].EndTime)
	})
	return auctions, nil
}

func (s *Memory) GetAuctionByID(_ context.Context, auctionID uuid.UUID) (types.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	auction, ok := s.auctions[auctionID]
	if !ok {
		return types.Auction{}, apperrors.ErrAuctionNotFound
	}
	return auction, nil
}

func (s *Memory) GetDueAuctionIDs(_ context.Context, now time.Time) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for id, auction := range s.auctions {
		if auction.IsActive && !auction.EndTime.After(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Memory) CreateAuction(_ context.Context, auction types.Auction) (types.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if auction.ID == uuid.Nil {
		auction.ID = uuid.New()
	}
	now := time.Now().UTC()
	auction.CurrentPrice = auction.StartingPrice
	auction.IsActive = true
	auction.ExtensionsUsed = 0
	auction.CreatedAt = now
	auction.UpdatedAt = now
	s.auctions[auction.ID] = auction
	return auction, nil
}

func (s *Memory) GetBidsForAuction(_ context.Context, auctionID uuid.UUID) ([]types.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bids := make([]types.Bid, len(s.bids[auctionID]))
	copy(bids, s.bids[auctionID])
	// Head of this order is the current winner.
	sort.Slice(bids, func(i, j int) bool {
		if !bids[i].Amount.Equal(bids[j].Amount) {
			return bids[i].Amount.GreaterThan(bids[j].Amount)
		}
		return bids[i].PlacedAt.After(bids[j].PlacedAt)
	})
	return bids, nil
}

// CONFIG METHODS

func (s *Memory) GetReservePrice(_ context.Context, auctionID uuid.UUID) (*types.ReservePrice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reserve, ok := s.reserves[auctionID]
	if !ok {
		return nil, nil
	}
	return &reserve, nil
}

func (s *Memory) SetReservePrice(_ context.Context, reserve types.ReservePrice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserves[reserve.AuctionID] = reserve
	return nil
}

func (s *Memory) GetActiveCommissionRule(_ context.Context) (*types.CommissionRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeRuleLocked(), nil
}

func (s *Memory) activeRuleLocked() *types.CommissionRule {
	for i := len(s.rules) - 1; i >= 0; i-- {
		if s.rules[i].IsActive {
			rule := s.rules[i]
			return &rule
		}
	}
	return nil
}

func (s *Memory) ActivateCommissionRule(_ context.Context, rule types.CommissionRule) (types.CommissionRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rules {
		s.rules[i].IsActive = false
	}
	rule.ID = uuid.New()
	rule.IsActive = true
	rule.CreatedAt = time.Now().UTC()
	s.rules = append(s.rules, rule)
	return rule, nil
}

// ESCROW METHODS

func (s *Memory) GetEscrowByID(_ context.Context, escrowID uuid.UUID) (types.Escrow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	escrow, ok := s.escrows[escrowID]
	if !ok {
		return types.Escrow{}, apperrors.ErrEscrowNotFound
	}
	return escrow, nil
}

func (s *Memory) GetEscrowByAuction(_ context.Context, auctionID uuid.UUID) (*types.Escrow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.escrowByAuction[auctionID]
	if !ok {
		return nil, nil
	}
	escrow := s.escrows[id]
	return &escrow, nil
}

// TRANSACTION METHODS

func (s *Memory) BeginTx(_ context.Context) (Tx, error) {
	return &memTx{s: s, held: make(map[uuid.UUID]*sync.Mutex)}, nil
}

func (s *Memory) GetAuctionForUpdateTx(_ context.Context, tx Tx, auctionID uuid.UUID) (types.Auction, error) {
	t := memTxOf(tx)
	t.lockArena(auctionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	auction, ok := s.auctions[auctionID]
	if !ok {
		return types.Auction{}, apperrors.ErrAuctionNotFound
	}
	return auction, nil
}

func (s *Memory) UpdateAuctionTx(_ context.Context, tx Tx, auction types.Auction) (types.Auction, error) {
	t := memTxOf(tx)
	auction.UpdatedAt = time.Now().UTC()
	t.stage(func() {
		s.auctions[auction.ID] = auction
	})
	return auction, nil
}

func (s *Memory) CreateBidTx(_ context.Context, tx Tx, bid types.Bid) (types.Bid, error) {
	t := memTxOf(tx)
	bid.ID = uuid.New()
	t.stage(func() {
		s.bids[bid.AuctionID] = append(s.bids[bid.AuctionID], bid)
	})
	return bid, nil
}

func (s *Memory) GetAntiSnipingConfigTx(_ context.Context, _ Tx, auctionID uuid.UUID) (*types.AntiSnipingConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.snipingConfigs[auctionID]
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

func (s *Memory) CreateAntiSnipingConfigTx(_ context.Context, tx Tx, cfg types.AntiSnipingConfig) error {
	t := memTxOf(tx)
	t.stage(func() {
		s.snipingConfigs[cfg.AuctionID] = cfg
	})
	return nil
}

func (s *Memory) GetReservePriceTx(_ context.Context, _ Tx, auctionID uuid.UUID) (*types.ReservePrice, error) {
	return s.GetReservePrice(context.Background(), auctionID)
}

func (s *Memory) GetActiveCommissionRuleTx(_ context.Context, _ Tx) (*types.CommissionRule, error) {
	return s.GetActiveCommissionRule(context.Background())
}

func (s *Memory) GetEscrowByAuctionTx(_ context.Context, _ Tx, auctionID uuid.UUID) (*types.Escrow, error) {
	return s.GetEscrowByAuction(context.Background(), auctionID)
}

func (s *Memory) CreateEscrowTx(_ context.Context, tx Tx, escrow types.Escrow) (types.Escrow, error) {
	s.mu.Lock()
	_, exists := s.escrowByAuction[escrow.AuctionID]
	s.mu.Unlock()
	if exists {
		return types.Escrow{}, apperrors.ErrEscrowExists
	}
	t := memTxOf(tx)
	escrow.ID = uuid.New()
	escrow.LastUpdated = time.Now().UTC()
	t.stage(func() {
		s.escrows[escrow.ID] = escrow
		s.escrowByAuction[escrow.AuctionID] = escrow.ID
	})
	return escrow, nil
}

func (s *Memory) CreateInvoiceTx(_ context.Context, tx Tx, invoice types.Invoice) (types.Invoice, error) {
	t := memTxOf(tx)
	invoice.ID = uuid.New()
	invoice.CreatedAt = time.Now().UTC()
	t.stage(func() {
		s.invoices[invoice.ID] = invoice
	})
	return invoice, nil
}

func (s *Memory) GetEscrowForUpdateTx(_ context.Context, tx Tx, escrowID uuid.UUID) (types.Escrow, error) {
	t := memTxOf(tx)
	t.lockArena(escrowID)
	s.mu.Lock()
	defer s.mu.Unlock()
	escrow, ok := s.escrows[escrowID]
	if !ok {
		return types.Escrow{}, apperrors.ErrEscrowNotFound
	}
	return escrow, nil
}

func (s *Memory) UpdateEscrowTx(_ context.Context, tx Tx, escrow types.Escrow) (types.Escrow, error) {
	t := memTxOf(tx)
	escrow.LastUpdated = time.Now().UTC()
	t.stage(func() {
		s.escrows[escrow.ID] = escrow
	})
	return escrow, nil
}
