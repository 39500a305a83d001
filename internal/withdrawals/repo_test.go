package withdrawals

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtclicks/ledger-backend/pkg/db/dbtest"
	"github.com/gtclicks/ledger-backend/pkg/db/models"
	"github.com/gtclicks/ledger-backend/pkg/enums"
)

func newWithdrawal(photographerID uuid.UUID, amount int64, createdAt time.Time) *models.WithdrawalRequest {
	return &models.WithdrawalRequest{
		PhotographerID: photographerID,
		Amount:         decimal.NewFromInt(amount),
		PixKey:         "seller@pix.com",
		Status:         enums.WithdrawalStatusPending,
		CreatedAt:      createdAt,
	}
}

func TestTransitionIsConditional(t *testing.T) {
	client := dbtest.New(t)
	seller := dbtest.CreateSeller(t, client.DB(), "seller@pix.com")
	repo := NewRepository(client.DB())
	ctx := context.Background()

	w := newWithdrawal(seller.Photographer.ID, 50, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, w))

	now := time.Now().UTC()
	note := "paid"
	ok, err := repo.Transition(ctx, w.ID, enums.WithdrawalStatusPending, Updates{
		Status:      enums.WithdrawalStatusProcessed,
		Note:        &note,
		ProcessedAt: &now,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Transition(ctx, w.ID, enums.WithdrawalStatusPending, Updates{Status: enums.WithdrawalStatusCancelled})
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusProcessed, stored.Status)
	require.NotNil(t, stored.Note)
	assert.Equal(t, "paid", *stored.Note)
	assert.NotNil(t, stored.ProcessedAt)

	missing, err := repo.FindByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAnnotateKeepsStatus(t *testing.T) {
	client := dbtest.New(t)
	seller := dbtest.CreateSeller(t, client.DB(), "seller@pix.com")
	repo := NewRepository(client.DB())
	ctx := context.Background()

	w := newWithdrawal(seller.Photographer.ID, 50, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, w))

	manual := true
	ok, err := repo.Annotate(ctx, w.ID, enums.WithdrawalStatusPending, Updates{Status: enums.WithdrawalStatusProcessed, ManualRequired: &manual})
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := repo.FindByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusPending, stored.Status)
	assert.True(t, stored.ManualRequired)
}

func TestListFiltersAndPaginates(t *testing.T) {
	client := dbtest.New(t)
	seller := dbtest.CreateSeller(t, client.DB(), "seller@pix.com")
	other := dbtest.CreateSeller(t, client.DB(), "other@pix.com")
	repo := NewRepository(client.DB())
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, newWithdrawal(seller.Photographer.ID, int64(10+i), base.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, repo.Create(ctx, newWithdrawal(other.Photographer.ID, 99, base)))

	photographerID := seller.Photographer.ID
	page, next, err := repo.List(ctx, ListParams{PhotographerID: &photographerID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, next)
	assert.True(t, page[0].Amount.Equal(decimal.NewFromInt(12)))
	assert.True(t, page[1].Amount.Equal(decimal.NewFromInt(11)))

	rest, next, err := repo.List(ctx, ListParams{PhotographerID: &photographerID, Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Nil(t, next)
	assert.True(t, rest[0].Amount.Equal(decimal.NewFromInt(10)))

	processed := enums.WithdrawalStatusProcessed
	none, _, err := repo.List(ctx, ListParams{Status: &processed})
	require.NoError(t, err)
	assert.Empty(t, none)

	pending := enums.WithdrawalStatusPending
	all, _, err := repo.List(ctx, ListParams{Status: &pending})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestFlagStale(t *testing.T) {
	client := dbtest.New(t)
	seller := dbtest.CreateSeller(t, client.DB(), "seller@pix.com")
	repo := NewRepository(client.DB())
	ctx := context.Background()

	old := newWithdrawal(seller.Photographer.ID, 50, time.Now().UTC().Add(-72*time.Hour))
	fresh := newWithdrawal(seller.Photographer.ID, 60, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, repo.Create(ctx, fresh))

	flagged, err := repo.FlagStale(ctx, time.Now().UTC().Add(-48*time.Hour), "stale", 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{old.ID}, flagged)

	again, err := repo.FlagStale(ctx, time.Now().UTC().Add(-48*time.Hour), "stale", 10)
	require.NoError(t, err)
	assert.Empty(t, again)

	stored, err := repo.FindByID(ctx, old.ID)
	require.NoError(t, err)
	assert.True(t, stored.ManualRequired)
}
