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
	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
)

type staticConfig map[string]decimal.Decimal

func (s staticConfig) GetNumber(_ context.Context, key string) (decimal.Decimal, error) {
	return s[key], nil
}

func TestSummary(t *testing.T) {
	repo := NewRepository(dbtest.New(t).DB())
	svc, err := NewService(repo, staticConfig{"MIN_WITHDRAWAL": dec("50")})
	require.NoError(t, err)
	ctx := context.Background()
	photographer := uuid.New()

	require.NoError(t, repo.Credit(ctx, photographer, dec("100")))
	require.NoError(t, repo.CreateEntries(ctx, &models.LedgerEntry{
		PhotographerID: photographer, Kind: enums.LedgerEntryKindSale, Amount: dec("100"),
		Description: "Photo sale: Dunes", Status: enums.LedgerEntryStatusProcessed,
	}))

	summary, err := svc.Summary(ctx, photographer)
	require.NoError(t, err)
	assert.True(t, summary.Available.Equal(dec("100")))
	assert.True(t, summary.TotalSold.Equal(dec("100")))
	assert.True(t, summary.MinWithdrawal.Equal(dec("50")))
	require.Len(t, summary.Entries, 1)
	assert.Equal(t, "SALE", summary.Entries[0].Kind)

	_, err = svc.Summary(ctx, uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSummaryWithoutHistory(t *testing.T) {
	svc, err := NewService(NewRepository(dbtest.New(t).DB()), staticConfig{"MIN_WITHDRAWAL": dec("50")})
	require.NoError(t, err)

	summary, err := svc.Summary(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, summary.Available.IsZero())
	assert.Empty(t, summary.Entries)
}

func TestVerifyConsistency(t *testing.T) {
	repo := NewRepository(dbtest.New(t).DB())
	svc, err := NewService(repo, staticConfig{})
	require.NoError(t, err)
	ctx := context.Background()
	photographer := uuid.New()
	withdrawalID := uuid.New()

	require.NoError(t, repo.Credit(ctx, photographer, dec("100")))
	require.NoError(t, repo.CreateEntries(ctx, &models.LedgerEntry{
		PhotographerID: photographer, Kind: enums.LedgerEntryKindSale, Amount: dec("100"),
		Description: "Photo sale", Status: enums.LedgerEntryStatusProcessed,
	}))
	require.NoError(t, svc.VerifyConsistency(ctx, photographer))

	require.NoError(t, repo.Reserve(ctx, photographer, dec("60")))
	err = svc.VerifyConsistency(ctx, photographer)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "reserve without entry must be flagged")

	require.NoError(t, repo.CreateEntries(ctx, &models.LedgerEntry{
		PhotographerID: photographer, Kind: enums.LedgerEntryKindWithdrawal, Amount: dec("-60"),
		Description: "Withdrawal", Status: enums.LedgerEntryStatusPending, WithdrawalID: &withdrawalID,
	}))
	require.NoError(t, svc.VerifyConsistency(ctx, photographer))

	_, err = repo.SetWithdrawalEntryStatus(ctx, withdrawalID, enums.LedgerEntryStatusPending, enums.LedgerEntryStatusProcessed)
	require.NoError(t, err)
	require.NoError(t, repo.ConsumeBlocked(ctx, photographer, dec("60")))
	require.NoError(t, svc.VerifyConsistency(ctx, photographer))
}

func TestNewServiceValidates(t *testing.T) {
	_, err := NewService(nil, staticConfig{})
	assert.Error(t, err)
	_, err = NewService(NewRepository(dbtest.New(t).DB()), nil)
	assert.Error(t, err)
}
