package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	apperrors "github.com/aliaunction/auction-engine/pkg/errors"
	"github.com/aliaunction/auction-engine/pkg/types"
	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Schema mirrors the Prisma-managed production tables.
const testSchema = `
CREATE TABLE public."User" (
    "id"        uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    "name"      text NOT NULL,
    "email"     text NOT NULL UNIQUE,
    "role"      text NOT NULL DEFAULT 'USER',
    "suspended" boolean NOT NULL DEFAULT false
);

CREATE TABLE public."Auctions" (
    "id"              uuid PRIMARY KEY,
    "title"           text NOT NULL,
    "ownerId"         uuid NOT NULL REFERENCES public."User"("id"),
    "startingPrice"   numeric(12,2) NOT NULL,
    "currentPrice"    numeric(12,2) NOT NULL,
    "bidIncrement"    numeric(12,2) NOT NULL DEFAULT 0,
    "scheduledStart"  timestamptz,
    "endTime"         timestamptz NOT NULL,
    "isActive"        boolean NOT NULL DEFAULT true,
    "extensionsUsed"  integer NOT NULL DEFAULT 0,
    "workflowStatus"  text NOT NULL DEFAULT 'DRAFT',
    "currentBidderId" uuid,
    "winnerId"        uuid,
    "createdAt"       timestamptz NOT NULL DEFAULT now(),
    "updatedAt"       timestamptz NOT NULL
);

CREATE TABLE public."Bid" (
    "id"        uuid PRIMARY KEY,
    "auctionId" uuid NOT NULL REFERENCES public."Auctions"("id"),
    "bidderId"  uuid NOT NULL REFERENCES public."User"("id"),
    "amount"    numeric(12,2) NOT NULL,
    "placedAt"  timestamptz NOT NULL
);

CREATE TABLE public."ReservePrice" (
    "auctionId" uuid PRIMARY KEY REFERENCES public."Auctions"("id"),
    "amount"    numeric(12,2) NOT NULL
);

CREATE TABLE public."CommissionRule" (
    "id"            uuid PRIMARY KEY,
    "sellerPercent" numeric(5,2) NOT NULL,
    "buyerPercent"  numeric(5,2) NOT NULL,
    "transportNote" text NOT NULL DEFAULT '',
    "isActive"      boolean NOT NULL DEFAULT false,
    "createdAt"     timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE public."AntiSnipingConfig" (
    "auctionId"        uuid PRIMARY KEY REFERENCES public."Auctions"("id"),
    "enabled"          boolean NOT NULL,
    "thresholdMinutes" integer NOT NULL,
    "extensionMinutes" integer NOT NULL,
    "maxExtensions"    integer NOT NULL
);

CREATE TABLE public."Escrow" (
    "id"          uuid PRIMARY KEY,
    "auctionId"   uuid NOT NULL UNIQUE REFERENCES public."Auctions"("id"),
    "buyerId"     uuid NOT NULL REFERENCES public."User"("id"),
    "sellerId"    uuid NOT NULL REFERENCES public."User"("id"),
    "status"      text NOT NULL,
    "lastUpdated" timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE public."Invoice" (
    "id"              uuid PRIMARY KEY,
    "auctionId"       uuid NOT NULL REFERENCES public."Auctions"("id"),
    "buyerId"         uuid NOT NULL REFERENCES public."User"("id"),
    "sellerId"        uuid NOT NULL REFERENCES public."User"("id"),
    "amount"          numeric(12,2) NOT NULL,
    "buyerFee"        numeric(12,2) NOT NULL,
    "sellerFee"       numeric(12,2) NOT NULL,
    "transportCharge" numeric(12,2) NOT NULL,
    "createdAt"       timestamptz NOT NULL DEFAULT now()
);
`

// startPostgres spins up a throwaway postgres container and returns a
// Service bound to it. Requires a local Docker daemon; skipped in -short.
func startPostgres(t *testing.T) *service {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("auctions"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("could not start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("error terminating container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	assert.Nil(t, err)

	db, err := sql.Open("pgx", connStr)
	assert.Nil(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.ExecContext(ctx, testSchema)
	assert.Nil(t, err)

	return &service{db: db}
}

func createTestUser(t *testing.T, svc *service, email string) types.User {
	t.Helper()
	var user types.User
	err := svc.db.QueryRowContext(context.Background(),
		`INSERT INTO public."User" ("name", "email") VALUES ($1, $2)
         RETURNING "id", "name", "email", "role", "suspended"`,
		"test user", email,
	).Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.Suspended)
	assert.Nil(t, err)
	return user
}

func TestPostgres_BidFlow(t *testing.T) {
	svc := startPostgres(t)
	ctx := context.Background()

	seller := createTestUser(t, svc, "seller@example.com")
	bidder := createTestUser(t, svc, "bidder@example.com")

	auction, err := svc.CreateAuction(ctx, types.Auction{
		Title:          "antique clock",
		OwnerID:        seller.ID,
		StartingPrice:  decimal.NewFromInt(100),
		EndTime:        time.Now().Add(time.Hour).UTC(),
		WorkflowStatus: types.WorkflowLive,
	})
	assert.Nil(t, err)
	check.Equal(t, "100", auction.CurrentPrice.String())
	check.True(t, auction.IsActive)

	tx, err := svc.BeginTx(ctx)
	assert.Nil(t, err)

	locked, err := svc.GetAuctionForUpdateTx(ctx, tx, auction.ID)
	assert.Nil(t, err)

	placedAt := time.Now().UTC()
	bid, err := svc.CreateBidTx(ctx, tx, types.Bid{
		AuctionID: auction.ID,
		BidderID:  bidder.ID,
		Amount:    decimal.NewFromInt(150),
		PlacedAt:  placedAt,
	})
	assert.Nil(t, err)
	check.True(t, bid.ID != uuid.Nil)

	locked.CurrentPrice = decimal.NewFromInt(150)
	locked.CurrentBidderID = &bidder.ID
	_, err = svc.UpdateAuctionTx(ctx, tx, locked)
	assert.Nil(t, err)
	assert.Nil(t, tx.Commit())

	stored, err := svc.GetAuctionByID(ctx, auction.ID)
	assert.Nil(t, err)
	check.Equal(t, "150", stored.CurrentPrice.String())
	assert.NotNil(t, stored.CurrentBidderID)
	check.Equal(t, bidder.ID, *stored.CurrentBidderID)

	bids, err := svc.GetBidsForAuction(ctx, auction.ID)
	assert.Nil(t, err)
	assert.Equal(t, 1, len(bids))
	check.Equal(t, "150", bids[0].Amount.String())
}

func TestPostgres_AntiSnipingConfigRoundTrip(t *testing.T) {
	svc := startPostgres(t)
	ctx := context.Background()

	seller := createTestUser(t, svc, "seller@example.com")
	auction, err := svc.CreateAuction(ctx, types.Auction{
		Title:          "lot",
		OwnerID:        seller.ID,
		StartingPrice:  decimal.NewFromInt(100),
		EndTime:        time.Now().Add(time.Hour).UTC(),
		WorkflowStatus: types.WorkflowLive,
	})
	assert.Nil(t, err)

	tx, err := svc.BeginTx(ctx)
	assert.Nil(t, err)

	cfg, err := svc.GetAntiSnipingConfigTx(ctx, tx, auction.ID)
	assert.Nil(t, err)
	check.True(t, cfg == nil)

	err = svc.CreateAntiSnipingConfigTx(ctx, tx, types.AntiSnipingConfig{
		AuctionID:        auction.ID,
		Enabled:          true,
		ThresholdMinutes: 5,
		ExtensionMinutes: 5,
		MaxExtensions:    10,
	})
	assert.Nil(t, err)
	assert.Nil(t, tx.Commit())

	tx, err = svc.BeginTx(ctx)
	assert.Nil(t, err)
	defer tx.Rollback()
	cfg, err = svc.GetAntiSnipingConfigTx(ctx, tx, auction.ID)
	assert.Nil(t, err)
	assert.NotNil(t, cfg)
	check.Equal(t, 10, cfg.MaxExtensions)
}

func TestPostgres_EscrowUniquePerAuction(t *testing.T) {
	svc := startPostgres(t)
	ctx := context.Background()

	seller := createTestUser(t, svc, "seller@example.com")
	buyer := createTestUser(t, svc, "buyer@example.com")
	auction, err := svc.CreateAuction(ctx, types.Auction{
		Title:          "lot",
		OwnerID:        seller.ID,
		StartingPrice:  decimal.NewFromInt(100),
		EndTime:        time.Now().Add(time.Hour).UTC(),
		WorkflowStatus: types.WorkflowLive,
	})
	assert.Nil(t, err)

	tx, err := svc.BeginTx(ctx)
	assert.Nil(t, err)
	escrow, err := svc.CreateEscrowTx(ctx, tx, types.Escrow{
		AuctionID: auction.ID,
		BuyerID:   buyer.ID,
		SellerID:  seller.ID,
		Status:    types.EscrowPendingPayment,
	})
	assert.Nil(t, err)
	check.Equal(t, types.EscrowPendingPayment, escrow.Status)
	assert.Nil(t, tx.Commit())

	tx, err = svc.BeginTx(ctx)
	assert.Nil(t, err)
	defer tx.Rollback()
	_, err = svc.CreateEscrowTx(ctx, tx, types.Escrow{
		AuctionID: auction.ID,
		BuyerID:   buyer.ID,
		SellerID:  seller.ID,
		Status:    types.EscrowPendingPayment,
	})
	check.True(t, errors.Is(err, apperrors.ErrEscrowExists))
}

func TestPostgres_CommissionRuleSingleActive(t *testing.T) {
	svc := startPostgres(t)
	ctx := context.Background()

	active, err := svc.GetActiveCommissionRule(ctx)
	assert.Nil(t, err)
	check.True(t, active == nil)

	_, err = svc.ActivateCommissionRule(ctx, types.CommissionRule{
		SellerPercent: decimal.NewFromInt(10),
		BuyerPercent:  decimal.NewFromInt(3),
	})
	assert.Nil(t, err)

	second, err := svc.ActivateCommissionRule(ctx, types.CommissionRule{
		SellerPercent: decimal.NewFromInt(12),
		BuyerPercent:  decimal.NewFromInt(5),
	})
	assert.Nil(t, err)

	active, err = svc.GetActiveCommissionRule(ctx)
	assert.Nil(t, err)
	assert.NotNil(t, active)
	check.Equal(t, second.ID, active.ID)

	var count int
	err = svc.db.QueryRowContext(ctx,
		`SELECT count(*) FROM public."CommissionRule" WHERE "isActive" = true`,
	).Scan(&count)
	assert.Nil(t, err)
	check.Equal(t, 1, count)
}
