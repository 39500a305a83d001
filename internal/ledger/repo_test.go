package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtclicks/ledger-backend/pkg/db/dbtest"
	"github.com/gtclicks/ledger-backend/pkg/db/models"
	"github.com/gtclicks/ledger-backend/pkg/enums"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestCreditCreatesThenAccumulates(t *testing.T) {
	repo := NewRepository(dbtest.New(t).DB())
	ctx := context.Background()
	photographer := uuid.New()

	balance, err := repo.FindBalance(ctx, photographer)
	require.NoError(t, err)
	assert.Nil(t, balance)

	require.NoError(t, repo.Credit(ctx, photographer, dec("80")))
	require.NoError(t, repo.Credit(ctx, photographer, dec("40.50")))

	balance, err = repo.FindBalance(ctx, photographer)
	require.NoError(t, err)
	require.NotNil(t, balance)
	assert.True(t, balance.Available.Equal(dec("120.50")), balance.Available.String())
	assert.True(t, balance.Blocked.IsZero())
}

func TestReserveReleaseConsume(t *testing.T) {
	repo := NewRepository(dbtest.New(t).DB())
	ctx := context.Background()
	photographer := uuid.New()
	require.NoError(t, repo.Credit(ctx, photographer, dec("100")))

	require.NoError(t, repo.Reserve(ctx, photographer, dec("60")))
	assert.ErrorIs(t, repo.Reserve(ctx, photographer, dec("40.25")), ErrInsufficientFunds)

	balance, err := repo.FindBalance(ctx, photographer)
	require.NoError(t, err)
	assert.True(t, balance.Available.Equal(dec("40")))
	assert.True(t, balance.Blocked.Equal(dec("60")))

	require.NoError(t, repo.Release(ctx, photographer, dec("10")))
	require.NoError(t, repo.ConsumeBlocked(ctx, photographer, dec("50")))
	assert.ErrorIs(t, repo.ConsumeBlocked(ctx, photographer, dec("0.50")), ErrInsufficientFunds)

	balance, err = repo.FindBalance(ctx, photographer)
	require.NoError(t, err)
	assert.True(t, balance.Available.Equal(dec("50")))
	assert.True(t, balance.Blocked.IsZero())
}

func TestReserveWithoutBalance(t *testing.T) {
	repo := NewRepository(dbtest.New(t).DB())
	assert.ErrorIs(t, repo.Reserve(context.Background(), uuid.New(), dec("1")), ErrInsufficientFunds)
}

func TestEntriesAndTotals(t *testing.T) {
	repo := NewRepository(dbtest.New(t).DB())
	ctx := context.Background()
	photographer := uuid.New()
	orderID, itemID := uuid.New(), uuid.New()
	processedID, pendingID := uuid.New(), uuid.New()

	require.NoError(t, repo.CreateEntries(ctx,
		&models.LedgerEntry{PhotographerID: photographer, Kind: enums.LedgerEntryKindSale, Amount: dec("80"), Description: "Photo sale: Sunset", Status: enums.LedgerEntryStatusProcessed, OrderID: &orderID, OrderItemID: &itemID},
		&models.LedgerEntry{PhotographerID: photographer, Kind: enums.LedgerEntryKindCommission, Amount: dec("20"), Description: "Platform commission", Status: enums.LedgerEntryStatusProcessed, OrderID: &orderID, OrderItemID: &itemID},
		&models.LedgerEntry{PhotographerID: photographer, Kind: enums.LedgerEntryKindWithdrawal, Amount: dec("-30"), Description: "Withdrawal", Status: enums.LedgerEntryStatusPending, WithdrawalID: &processedID},
		&models.LedgerEntry{PhotographerID: photographer, Kind: enums.LedgerEntryKindWithdrawal, Amount: dec("-10"), Description: "Withdrawal", Status: enums.LedgerEntryStatusPending, WithdrawalID: &pendingID},
	))

	moved, err := repo.SetWithdrawalEntryStatus(ctx, processedID, enums.LedgerEntryStatusPending, enums.LedgerEntryStatusProcessed)
	require.NoError(t, err)
	assert.True(t, moved)
	moved, err = repo.SetWithdrawalEntryStatus(ctx, processedID, enums.LedgerEntryStatusPending, enums.LedgerEntryStatusFailed)
	require.NoError(t, err)
	assert.False(t, moved)

	totals, err := repo.Totals(ctx, photographer)
	require.NoError(t, err)
	assert.True(t, totals.TotalSold.Equal(dec("80")), totals.TotalSold.String())
	assert.True(t, totals.TotalWithdrawn.Equal(dec("30")), totals.TotalWithdrawn.String())
	assert.True(t, totals.PendingWithdrawals.Equal(dec("10")), totals.PendingWithdrawals.String())

	entries, err := repo.ListEntries(ctx, photographer, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestDuplicateSaleEntryRejected(t *testing.T) {
	repo := NewRepository(dbtest.New(t).DB())
	ctx := context.Background()
	photographer, itemID := uuid.New(), uuid.New()

	sale := func() *models.LedgerEntry {
		return &models.LedgerEntry{PhotographerID: photographer, Kind: enums.LedgerEntryKindSale, Amount: dec("10"), Description: "Photo sale", Status: enums.LedgerEntryStatusProcessed, OrderItemID: &itemID}
	}
	require.NoError(t, repo.CreateEntries(ctx, sale()))
	assert.Error(t, repo.CreateEntries(ctx, sale()))
}

func TestListBalancesPagesByID(t *testing.T) {
	repo := NewRepository(dbtest.New(t).DB())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Credit(ctx, uuid.New(), dec("1")))
	}

	first, err := repo.ListBalances(ctx, uuid.Nil, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	rest, err := repo.ListBalances(ctx, first[1].PhotographerID, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}
