package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aliaunction/auction-engine/configs"
	apperrors "github.com/aliaunction/auction-engine/pkg/errors"
	"github.com/aliaunction/auction-engine/pkg/types"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/joho/godotenv/autoload"
)

// Tx abstracts a storage transaction so the engine can run the same
// validate-then-write sequence against postgres or the in-memory store.
type Tx interface {
	Commit() error
	Rollback() error
}

// Service represents a service that interacts with a database.
type Service interface {
	// Health returns a map of health status information.
	// The keys and values in the map are service-specific.
	Health() map[string]string

	// Close terminates the database connection.
	// It returns an error if the connection cannot be closed.
	Close() error

	// USER METHODS
	GetUserByEmail(ctx context.Context, email string) (types.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (types.User, error)

	// AUCTION METHODS
	GetCurrentAuctions(ctx context.Context) ([]types.Auction, error)
	GetAuctionByID(ctx context.Context, auctionID uuid.UUID) (types.Auction, error)
	GetDueAuctionIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	CreateAuction(ctx context.Context, auction types.Auction) (types.Auction, error)
	GetBidsForAuction(ctx context.Context, auctionID uuid.UUID) ([]types.Bid, error)

	// CONFIG METHODS
	GetReservePrice(ctx context.Context, auctionID uuid.UUID) (*types.ReservePrice, error)
	SetReservePrice(ctx context.Context, reserve types.ReservePrice) error
	GetActiveCommissionRule(ctx context.Context) (*types.CommissionRule, error)
	ActivateCommissionRule(ctx context.Context, rule types.CommissionRule) (types.CommissionRule, error)

	// ESCROW METHODS
	GetEscrowByID(ctx context.Context, escrowID uuid.UUID) (types.Escrow, error)
	GetEscrowByAuction(ctx context.Context, auctionID uuid.UUID) (*types.Escrow, error)

	// TRANSACTION METHODS
	BeginTx(ctx context.Context) (Tx, error)
	GetAuctionForUpdateTx(ctx context.Context, tx Tx, auctionID uuid.UUID) (types.Auction, error)
	UpdateAuctionTx(ctx context.Context, tx Tx, auction types.Auction) (types.Auction, error)
	CreateBidTx(ctx context.Context, tx Tx, bid types.Bid) (types.Bid, error)
	GetAntiSnipingConfigTx(ctx context.Context, tx Tx, auctionID uuid.UUID) (*types.AntiSnipingConfig, error)
	CreateAntiSnipingConfigTx(ctx context.Context, tx Tx, cfg types.AntiSnipingConfig) error
	GetReservePriceTx(ctx context.Context, tx Tx, auctionID uuid.UUID) (*types.ReservePrice, error)
	GetActiveCommissionRuleTx(ctx context.Context, tx Tx) (*types.CommissionRule, error)
	GetEscrowByAuctionTx(ctx context.Context, tx Tx, auctionID uuid.UUID) (*types.Escrow, error)
	CreateEscrowTx(ctx context.Context, tx Tx, escrow types.Escrow) (types.Escrow, error)
	CreateInvoiceTx(ctx context.Context, tx Tx, invoice types.Invoice) (types.Invoice, error)
	GetEscrowForUpdateTx(ctx context.Context, tx Tx, escrowID uuid.UUID) (types.Escrow, error)
	UpdateEscrowTx(ctx context.Context, tx Tx, escrow types.Escrow) (types.Escrow, error)
}

type service struct {
	db *sql.DB
}

var dbInstance *service

func New(cfg *configs.Config) Service {
	// Reuse Connection
	if dbInstance != nil {
		return dbInstance
	}
	dbConfig := cfg.Database
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbConfig.User,
		dbConfig.Password,
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.Name,
		dbConfig.SSLMode,
	)
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		log.Fatal(err)
	}

	dbInstance = &service{
		db: db,
	}
	return dbInstance
}

// IsConflict reports whether err is a transient concurrency conflict that
// the caller may retry with fresh state: a postgres serialization failure,
// a deadlock, or the engine's own conflict sentinel.
func IsConflict(err error) bool {
	if errors.Is(err, apperrors.ErrConcurrentConflict) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// Health checks the health of the database connection by pinging the database.
// It returns a map with keys indicating various health statistics.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	// Ping the database
	err := s.db.PingContext(ctx)
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		log.Errorf("db down: %v", err)
		return stats
	}

	// Database is up, add more statistics
	stats["status"] = "up"
	stats["message"] = "It's healthy"

	// Get database stats (like open connections, in use, idle, etc.)
	dbStats := s.db.Stats()
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration"] = dbStats.WaitDuration.String()
	stats["max_idle_closed"] = strconv.FormatInt(dbStats.MaxIdleClosed, 10)
	stats["max_lifetime_closed"] = strconv.FormatInt(dbStats.MaxLifetimeClosed, 10)

	// Evaluate stats to provide a health message
	if dbStats.OpenConnections > 40 { // Assuming 50 is the max for this example
		stats["message"] = "The database is experiencing heavy load."
	}

	if dbStats.WaitCount > 1000 {
		stats["message"] = "The database has a high number of wait events, indicating potential bottlenecks."
	}

	return stats
}

// Close closes the database connection.
func (s *service) Close() error {
	log.Info("Disconnected from database")
	return s.db.Close()
}

func (s *service) GetUserByEmail(ctx context.Context, email string) (types.User, error) {
	var user types.User
	err := s.db.QueryRowContext(ctx,
		`SELECT "id", "name", "email", "role", "suspended" FROM public."User" WHERE "email" = $1`,
		email,
	).Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.Suspended)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, apperrors.ErrUserNotFound
		}
		return types.User{}, fmt.Errorf("error getting user by email: %w", err)
	}
	return user, nil
}

func (s *service) GetUserByID(ctx context.Context, id uuid.UUID) (types.User, error) {
	var user types.User
	err := s.db.QueryRowContext(ctx,
		`SELECT "id", "name", "email", "role", "suspended" FROM public."User" WHERE "id" = $1`,
		id,
	).Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.Suspended)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, apperrors.ErrUserNotFound
		}
		return types.User{}, fmt.Errorf("error getting user by id: %w", err)
	}
	return user, nil
}

const auctionColumns = `
            "id",
            "title",
            "ownerId",
            "startingPrice",
            "currentPrice",
            "bidIncrement",
            "scheduledStart",
            "endTime",
            "isActive",
            "extensionsUsed",
            "workflowStatus",
            "currentBidderId",
            "winnerId",
            "createdAt",
            "updatedAt"`

func scanAuction(row interface{ Scan(dest ...any) error }) (types.Auction, error) {
	var auction types.Auction
	var workflow string
	err := row.Scan(
		&auction.ID,
		&auction.Title,
		&auction.OwnerID,
		&auction.StartingPrice,
		&auction.CurrentPrice,
		&auction.BidIncrement,
		&auction.ScheduledStart,
		&auction.EndTime,
		&auction.IsActive,
		&auction.ExtensionsUsed,
		&workflow,
		&auction.CurrentBidderID,
		&auction.WinnerID,
		&auction.CreatedAt,
		&auction.UpdatedAt,
	)
	auction.WorkflowStatus = types.WorkflowStatus(workflow)
	return auction, err
}

func (s *service) GetAuctionByID(ctx context.Context, auctionID uuid.UUID) (types.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM public."Auctions" WHERE "id" = $1`
	auction, err := scanAuction(s.db.QueryRowContext(ctx, query, auctionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Auction{}, apperrors.ErrAuctionNotFound
		}
		return types.Auction{}, fmt.Errorf("error getting auction by id: %w", err)
	}
	return auction, nil
}

func (s *service) GetCurrentAuctions(ctx context.Context) ([]types.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM public."Auctions" WHERE "isActive" = true ORDER BY "endTime" ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error getting current auctions: %w", err)
	}
	defer rows.Close()

	var auctions []types.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning auction: %w", err)
		}
		auctions = append(auctions, auction)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over auctions: %w", err)
	}
	return auctions, nil
}

// GetDueAuctionIDs returns auctions still marked active whose end time has
// passed. The close worker re-checks each one under a row lock before
// flipping it, so a stale hit here is harmless.
func (s *service) GetDueAuctionIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT "id" FROM public."Auctions" WHERE "isActive" = true AND "endTime" <= $1`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("error getting due auctions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning due auction id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *service) CreateAuction(ctx context.Context, auction types.Auction) (types.Auction, error) {
	query := `
        INSERT INTO public."Auctions"
            ("id", "title", "ownerId", "startingPrice", "currentPrice", "bidIncrement",
             "scheduledStart", "endTime", "isActive", "extensionsUsed", "workflowStatus", "updatedAt")
        VALUES (gen_random_uuid(), $1, $2, $3, $3, $4, $5, $6, true, 0, $7, now())
        RETURNING ` + auctionColumns
	created, err := scanAuction(s.db.QueryRowContext(ctx, query,
		auction.Title,
		auction.OwnerID,
		auction.StartingPrice,
		auction.BidIncrement,
		auction.ScheduledStart,
		auction.EndTime,
		string(auction.WorkflowStatus),
	))
	if err != nil {
		return types.Auction{}, apperrors.Wrap(err, "error creating auction")
	}
	return created, nil
}

func (s *service) GetBidsForAuction(ctx context.Context, auctionID uuid.UUID) ([]types.Bid, error) {
	// Head of this order is the current winner.
	rows, err := s.db.QueryContext(ctx,
		`SELECT "id", "auctionId", "bidderId", "amount", "placedAt"
         FROM public."Bid" WHERE "auctionId" = $1 ORDER BY "amount" DESC, "placedAt" DESC`,
		auctionID,
	)
	if err != nil {
		return nil, fmt.Errorf("error getting bids for auction: %w", err)
	}
	defer rows.Close()

	var bids []types.Bid
	for rows.Next() {
		var bid types.Bid
		if err := rows.Scan(&bid.ID, &bid.AuctionID, &bid.BidderID, &bid.Amount, &bid.PlacedAt); err != nil {
			return nil, fmt.Errorf("error scanning bid: %w", err)
		}
		bids = append(bids, bid)
	}
	return bids, rows.Err()
}

func (s *service) GetReservePrice(ctx context.Context, auctionID uuid.UUID) (*types.ReservePrice, error) {
	var reserve types.ReservePrice
	err := s.db.QueryRowContext(ctx,
		`SELECT "auctionId", "amount" FROM public."ReservePrice" WHERE "auctionId" = $1`,
		auctionID,
	).Scan(&reserve.AuctionID, &reserve.Amount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // no reserve set
	}
	if err != nil {
		return nil, fmt.Errorf("error getting reserve price: %w", err)
	}
	return &reserve, nil
}

func (s *service) SetReservePrice(ctx context.Context, reserve types.ReservePrice) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO public."ReservePrice" ("auctionId", "amount") VALUES ($1, $2)
         ON CONFLICT ("auctionId") DO UPDATE SET "amount" = EXCLUDED."amount"`,
		reserve.AuctionID, reserve.Amount,
	)
	if err != nil {
		return apperrors.Wrap(err, "error setting reserve price")
	}
	return nil
}

func (s *service) GetActiveCommissionRule(ctx context.Context) (*types.CommissionRule, error) {
	return getActiveCommissionRule(ctx, s.db.QueryRowContext)
}

type rowQuerier func(ctx context.Context, query string, args ...any) *sql.Row

func getActiveCommissionRule(ctx context.Context, queryRow rowQuerier) (*types.CommissionRule, error) {
	var rule types.CommissionRule
	err := queryRow(ctx,
		`SELECT "id", "sellerPercent", "buyerPercent", "transportNote", "isActive", "createdAt"
         FROM public."CommissionRule" WHERE "isActive" = true ORDER BY "createdAt" DESC LIMIT 1`,
	).Scan(&rule.ID, &rule.SellerPercent, &rule.BuyerPercent, &rule.TransportNote, &rule.IsActive, &rule.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // missing optional config, not an error
	}
	if err != nil {
		return nil, fmt.Errorf("error getting active commission rule: %w", err)
	}
	return &rule, nil
}

// ActivateCommissionRule inserts the rule and deactivates every other one in
// the same transaction, keeping the single-active invariant.
func (s *service) ActivateCommissionRule(ctx context.Context, rule types.CommissionRule) (types.CommissionRule, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return types.CommissionRule{}, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE public."CommissionRule" SET "isActive" = false WHERE "isActive" = true`); err != nil {
		return types.CommissionRule{}, apperrors.Wrap(err, "error deactivating commission rules")
	}

	var created types.CommissionRule
	err = tx.QueryRowContext(ctx,
		`INSERT INTO public."CommissionRule" ("id", "sellerPercent", "buyerPercent", "transportNote", "isActive")
         VALUES (gen_random_uuid(), $1, $2, $3, true)
         RETURNING "id", "sellerPercent", "buyerPercent", "transportNote", "isActive", "createdAt"`,
		rule.SellerPercent, rule.BuyerPercent, rule.TransportNote,
	).Scan(&created.ID, &created.SellerPercent, &created.BuyerPercent, &created.TransportNote, &created.IsActive, &created.CreatedAt)
	if err != nil {
		return types.CommissionRule{}, apperrors.Wrap(err, "error creating commission rule")
	}

	if err := tx.Commit(); err != nil {
		return types.CommissionRule{}, fmt.Errorf("error committing commission rule: %w", err)
	}
	return created, nil
}

func scanEscrow(row interface{ Scan(dest ...any) error }) (types.Escrow, error) {
	var escrow types.Escrow
	var status string
	err := row.Scan(&escrow.ID, &escrow.AuctionID, &escrow.BuyerID, &escrow.SellerID, &status, &escrow.LastUpdated)
	escrow.Status = types.EscrowStatus(status)
	return escrow, err
}

const escrowColumns = `"id", "auctionId", "buyerId", "sellerId", "status", "lastUpdated"`

func (s *service) GetEscrowByID(ctx context.Context, escrowID uuid.UUID) (types.Escrow, error) {
	query := `SELECT ` + escrowColumns + ` FROM public."Escrow" WHERE "id" = $1`
	escrow, err := scanEscrow(s.db.QueryRowContext(ctx, query, escrowID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Escrow{}, apperrors.ErrEscrowNotFound
		}
		return types.Escrow{}, fmt.Errorf("error getting escrow by id: %w", err)
	}
	return escrow, nil
}

func (s *service) GetEscrowByAuction(ctx context.Context, auctionID uuid.UUID) (*types.Escrow, error) {
	query := `SELECT ` + escrowColumns + ` FROM public."Escrow" WHERE "auctionId" = $1`
	escrow, err := scanEscrow(s.db.QueryRowContext(ctx, query, auctionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting escrow by auction: %w", err)
	}
	return &escrow, nil
}

// BeginTx starts a new serializable database transaction.
func (s *service) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}
	return tx, nil
}

func sqlTx(tx Tx) *sql.Tx {
	return tx.(*sql.Tx)
}

// GetAuctionForUpdateTx retrieves an auction within a transaction, taking a
// row lock so concurrent bids on the same auction serialize.
func (s *service) GetAuctionForUpdateTx(ctx context.Context, tx Tx, auctionID uuid.UUID) (types.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM public."Auctions" WHERE "id" = $1 FOR UPDATE`
	auction, err := scanAuction(sqlTx(tx).QueryRowContext(ctx, query, auctionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Auction{}, apperrors.ErrAuctionNotFound
		}
		return types.Auction{}, fmt.Errorf("error getting auction by id in tx: %w", err)
	}
	return auction, nil
}

// UpdateAuctionTx writes back the auction's mutable bidding state in one
// statement: price, bidder, end time, extension count, active flag, winner.
func (s *service) UpdateAuctionTx(ctx context.Context, tx Tx, auction types.Auction) (types.Auction, error) {
	query := `
        UPDATE public."Auctions"
        SET "currentPrice" = $1, "currentBidderId" = $2, "endTime" = $3,
            "extensionsUsed" = $4, "isActive" = $5, "winnerId" = $6, "updatedAt" = now()
        WHERE "id" = $7
        RETURNING ` + auctionColumns
	updated, err := scanAuction(sqlTx(tx).QueryRowContext(ctx, query,
		auction.CurrentPrice,
		auction.CurrentBidderID,
		auction.EndTime,
		auction.ExtensionsUsed,
		auction.IsActive,
		auction.WinnerID,
		auction.ID,
	))
	if err != nil {
		return types.Auction{}, fmt.Errorf("error updating auction by id in tx: %w", err)
	}
	log.Debugf("Auction %s updated with current price: %v", updated.ID, updated.CurrentPrice)
	return updated, nil
}

// CreateBidTx creates a bid within a transaction.
func (s *service) CreateBidTx(ctx context.Context, tx Tx, bid types.Bid) (types.Bid, error) {
	var returnedBid types.Bid
	query := `
        INSERT INTO public."Bid" ("id", "auctionId", "bidderId", "amount", "placedAt")
        VALUES (gen_random_uuid(), $1, $2, $3, $4)
        RETURNING "id", "auctionId", "bidderId", "amount", "placedAt"
    `
	err := sqlTx(tx).QueryRowContext(ctx, query, bid.AuctionID, bid.BidderID, bid.Amount, bid.PlacedAt).Scan(
		&returnedBid.ID,
		&returnedBid.AuctionID,
		&returnedBid.BidderID,
		&returnedBid.Amount,
		&returnedBid.PlacedAt,
	)
	if err != nil {
		return types.Bid{}, fmt.Errorf("error creating bid in tx: %w", err)
	}
	return returnedBid, nil
}

func (s *service) GetAntiSnipingConfigTx(ctx context.Context, tx Tx, auctionID uuid.UUID) (*types.AntiSnipingConfig, error) {
	var cfg types.AntiSnipingConfig
	err := sqlTx(tx).QueryRowContext(ctx,
		`SELECT "auctionId", "enabled", "thresholdMinutes", "extensionMinutes", "maxExtensions"
         FROM public."AntiSnipingConfig" WHERE "auctionId" = $1`,
		auctionID,
	).Scan(&cfg.AuctionID, &cfg.Enabled, &cfg.ThresholdMinutes, &cfg.ExtensionMinutes, &cfg.MaxExtensions)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // engine falls back to the process default
	}
	if err != nil {
		return nil, fmt.Errorf("error getting anti-sniping config in tx: %w", err)
	}
	return &cfg, nil
}

func (s *service) CreateAntiSnipingConfigTx(ctx context.Context, tx Tx, cfg types.AntiSnipingConfig) error {
	_, err := sqlTx(tx).ExecContext(ctx,
		`INSERT INTO public."AntiSnipingConfig"
            ("auctionId", "enabled", "thresholdMinutes", "extensionMinutes", "maxExtensions")
         VALUES ($1, $2, $3, $4, $5)`,
		cfg.AuctionID, cfg.Enabled, cfg.ThresholdMinutes, cfg.ExtensionMinutes, cfg.MaxExtensions,
	)
	if err != nil {
		return fmt.Errorf("error creating anti-sniping config in tx: %w", err)
	}
	return nil
}

func (s *service) GetReservePriceTx(ctx context.Context, tx Tx, auctionID uuid.UUID) (*types.ReservePrice, error) {
	var reserve types.ReservePrice
	err := sqlTx(tx).QueryRowContext(ctx,
		`SELECT "auctionId", "amount" FROM public."ReservePrice" WHERE "auctionId" = $1`,
		auctionID,
	).Scan(&reserve.AuctionID, &reserve.Amount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting reserve price in tx: %w", err)
	}
	return &reserve, nil
}

func (s *service) GetActiveCommissionRuleTx(ctx context.Context, tx Tx) (*types.CommissionRule, error) {
	return getActiveCommissionRule(ctx, sqlTx(tx).QueryRowContext)
}

func (s *service) GetEscrowByAuctionTx(ctx context.Context, tx Tx, auctionID uuid.UUID) (*types.Escrow, error) {
	query := `SELECT ` + escrowColumns + ` FROM public."Escrow" WHERE "auctionId" = $1`
	escrow, err := scanEscrow(sqlTx(tx).QueryRowContext(ctx, query, auctionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting escrow by auction in tx: %w", err)
	}
	return &escrow, nil
}

// CreateEscrowTx creates an escrow within a transaction. The unique
// constraint on "auctionId" backs the one-escrow-per-auction invariant.
func (s *service) CreateEscrowTx(ctx context.Context, tx Tx, escrow types.Escrow) (types.Escrow, error) {
	query := `
        INSERT INTO public."Escrow" ("id", "auctionId", "buyerId", "sellerId", "status", "lastUpdated")
        VALUES (gen_random_uuid(), $1, $2, $3, $4, now())
        RETURNING ` + escrowColumns
	created, err := scanEscrow(sqlTx(tx).QueryRowContext(ctx, query,
		escrow.AuctionID, escrow.BuyerID, escrow.SellerID, string(escrow.Status),
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return types.Escrow{}, apperrors.ErrEscrowExists
		}
		return types.Escrow{}, fmt.Errorf("error creating escrow in tx: %w", err)
	}
	return created, nil
}

func (s *service) CreateInvoiceTx(ctx context.Context, tx Tx, invoice types.Invoice) (types.Invoice, error) {
	query := `
        INSERT INTO public."Invoice"
            ("id", "auctionId", "buyerId", "sellerId", "amount", "buyerFee", "sellerFee", "transportCharge")
        VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7)
        RETURNING "id", "auctionId", "buyerId", "sellerId", "amount", "buyerFee", "sellerFee", "transportCharge", "createdAt"
    `
	var created types.Invoice
	err := sqlTx(tx).QueryRowContext(ctx, query,
		invoice.AuctionID, invoice.BuyerID, invoice.SellerID,
		invoice.Amount, invoice.BuyerFee, invoice.SellerFee, invoice.TransportCharge,
	).Scan(
		&created.ID, &created.AuctionID, &created.BuyerID, &created.SellerID,
		&created.Amount, &created.BuyerFee, &created.SellerFee, &created.TransportCharge, &created.CreatedAt,
	)
	if err != nil {
		return types.Invoice{}, fmt.Errorf("error creating invoice in tx: %w", err)
	}
	return created, nil
}

func (s *service) GetEscrowForUpdateTx(ctx context.Context, tx Tx, escrowID uuid.UUID) (types.Escrow, error) {
	query := `SELECT ` + escrowColumns + ` FROM public."Escrow" WHERE "id" = $1 FOR UPDATE`
	escrow, err := scanEscrow(sqlTx(tx).QueryRowContext(ctx, query, escrowID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Escrow{}, apperrors.ErrEscrowNotFound
		}
		return types.Escrow{}, fmt.Errorf("error getting escrow by id in tx: %w", err)
	}
	return escrow, nil
}

func (s *service) UpdateEscrowTx(ctx context.Context, tx Tx, escrow types.Escrow) (types.Escrow, error) {
	query := `
        UPDATE public."Escrow" SET "status" = $1, "lastUpdated" = now()
        WHERE "id" = $2
        RETURNING ` + escrowColumns
	updated, err := scanEscrow(sqlTx(tx).QueryRowContext(ctx, query, string(escrow.Status), escrow.ID))
	if err != nil {
		return types.Escrow{}, fmt.Errorf("error updating escrow in tx: %w", err)
	}
	return updated, nil
}
