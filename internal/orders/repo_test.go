package orders

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

func TestMarkPaidClaimsOnce(t *testing.T) {
	client := dbtest.New(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()
	buyer := dbtest.CreateBuyer(t, client.DB())
	order := dbtest.CreatePendingOrder(t, client.DB(), buyer.ID, nil)

	input := MarkPaidInput{OrderID: order.ID, ExternalPaymentID: "pay_1", Provider: enums.PaymentProviderAsaas, PaidAt: time.Now().UTC()}
	ok, err := repo.MarkPaid(ctx, input)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkPaid(ctx, input)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, stored.Status)
	require.NotNil(t, stored.ExternalPaymentID)
	assert.Equal(t, "pay_1", *stored.ExternalPaymentID)
	require.NotNil(t, stored.Provider)
	assert.Equal(t, enums.PaymentProviderAsaas, *stored.Provider)
	assert.NotNil(t, stored.PaidAt)
}

func TestMarkPaidMissingOrder(t *testing.T) {
	repo := NewRepository(dbtest.New(t).DB())
	ok, err := repo.MarkPaid(context.Background(), MarkPaidInput{OrderID: uuid.New(), ExternalPaymentID: "x", Provider: enums.PaymentProviderStripe, PaidAt: time.Now()})
	require.NoError(t, err)
	assert.False(t, ok)

	exists, err := repo.Exists(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMarkCancelledOnlyFromPending(t *testing.T) {
	client := dbtest.New(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()
	buyer := dbtest.CreateBuyer(t, client.DB())

	pending := dbtest.CreatePendingOrder(t, client.DB(), buyer.ID, nil)
	ok, err := repo.MarkCancelled(ctx, pending.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	paid := dbtest.CreatePendingOrder(t, client.DB(), buyer.ID, nil)
	_, err = repo.MarkPaid(ctx, MarkPaidInput{OrderID: paid.ID, ExternalPaymentID: "p", Provider: enums.PaymentProviderMercadoPago, PaidAt: time.Now().UTC()})
	require.NoError(t, err)
	ok, err = repo.MarkCancelled(ctx, paid.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindByID(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, stored.Status)
}

func TestCancelExpiredSkipsPaidAndFresh(t *testing.T) {
	client := dbtest.New(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()
	buyer := dbtest.CreateBuyer(t, client.DB())
	old := time.Now().UTC().Add(-96 * time.Hour)

	stale := dbtest.CreatePendingOrder(t, client.DB(), buyer.ID, nil)
	paid := dbtest.CreatePendingOrder(t, client.DB(), buyer.ID, nil)
	fresh := dbtest.CreatePendingOrder(t, client.DB(), buyer.ID, nil)
	require.NoError(t, client.DB().Model(&models.Order{}).Where("id IN ?", []uuid.UUID{stale.ID, paid.ID}).Update("created_at", old).Error)
	_, err := repo.MarkPaid(ctx, MarkPaidInput{OrderID: paid.ID, ExternalPaymentID: "p", Provider: enums.PaymentProviderAsaas, PaidAt: time.Now().UTC()})
	require.NoError(t, err)

	cancelled, err := repo.CancelExpired(ctx, time.Now().UTC().Add(-72*time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{stale.ID}, cancelled)

	stored, err := repo.FindByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, stored.Status)
}

func TestLoadItemsAndIncrementSales(t *testing.T) {
	client := dbtest.New(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()
	seller := dbtest.CreateSeller(t, client.DB(), "seller@pix.com")
	buyer := dbtest.CreateBuyer(t, client.DB())
	photo := dbtest.CreatePhoto(t, client.DB(), seller.Photographer.ID, "Sunset", true)
	order := dbtest.CreatePendingOrder(t, client.DB(), buyer.ID, map[uuid.UUID]string{photo.ID: "100.00"})

	items, err := repo.LoadItemsWithPhotoAndPhotographer(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, photo.ID, items[0].PhotoID)
	assert.Equal(t, "Sunset", items[0].PhotoTitle)
	assert.Equal(t, seller.Photographer.ID, items[0].PhotographerID)
	assert.Equal(t, seller.User.ID, items[0].PhotographerUserID)
	assert.True(t, items[0].PricePaid.Equal(decimal.NewFromInt(100)))
	require.NotNil(t, items[0].CollectionID)

	require.NoError(t, repo.IncrementSalesCounts(ctx, photo.ID, items[0].CollectionID))

	var storedPhoto models.Photo
	require.NoError(t, client.DB().Take(&storedPhoto, "id = ?", photo.ID).Error)
	assert.Equal(t, 1, storedPhoto.SalesCount)
	var collection models.Collection
	require.NoError(t, client.DB().Take(&collection, "id = ?", *photo.CollectionID).Error)
	assert.Equal(t, 1, collection.SalesCount)

	found, err := repo.FindBuyer(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, buyer.Email, found.Email)
	missing, err := repo.FindBuyer(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}
