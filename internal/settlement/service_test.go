package settlement

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtclicks/ledger-backend/internal/ledger"
	"github.com/gtclicks/ledger-backend/internal/notifications"
	"github.com/gtclicks/ledger-backend/internal/orders"
	"github.com/gtclicks/ledger-backend/pkg/db"
	"github.com/gtclicks/ledger-backend/pkg/db/dbtest"
	"github.com/gtclicks/ledger-backend/pkg/db/models"
	"github.com/gtclicks/ledger-backend/pkg/enums"
	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
	"github.com/gtclicks/ledger-backend/pkg/logger"
	"github.com/gtclicks/ledger-backend/pkg/outbox"
)

type staticConfig struct {
	pct decimal.Decimal
}

func (s staticConfig) GetNumber(context.Context, string) (decimal.Decimal, error) {
	return s.pct, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	sales    []notifications.SaleNotice
	approved []notifications.OrderApprovedNotice
}

func (r *recordingNotifier) SaleRecorded(_ context.Context, n notifications.SaleNotice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales = append(r.sales, n)
}

func (r *recordingNotifier) OrderApproved(_ context.Context, n notifications.OrderApprovedNotice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.approved = append(r.approved, n)
}

func (r *recordingNotifier) WithdrawalResolved(context.Context, notifications.WithdrawalNotice) {}

type fixture struct {
	client   *db.Client
	svc      *Service
	notifier *recordingNotifier
	ledger   ledger.Repository
}

func newFixture(t *testing.T, pct string) fixture {
	t.Helper()
	return newFixtureOn(t, dbtest.New(t), pct)
}

func newFixtureOn(t *testing.T, client *db.Client, pct string) fixture {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	notifier := &recordingNotifier{}
	ledgerRepo := ledger.NewRepository(client.DB())
	svc, err := NewService(ServiceParams{
		TxRunner: client,
		Orders:   orders.NewRepository(client.DB()),
		Ledger:   ledgerRepo,
		Config:   staticConfig{pct: decimal.RequireFromString(pct)},
		Outbox:   outbox.NewService(outbox.NewRepository(client.DB()), nil),
		Notifier: notifier,
		Logger:   logg,
	})
	require.NoError(t, err)
	return fixture{client: client, svc: svc, notifier: notifier, ledger: ledgerRepo}
}

func (f fixture) balance(t *testing.T, photographerID uuid.UUID) *models.Balance {
	t.Helper()
	balance, err := f.ledger.FindBalance(context.Background(), photographerID)
	require.NoError(t, err)
	return balance
}

func (f fixture) order(t *testing.T, id uuid.UUID) models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, f.client.DB().Take(&order, "id = ?", id).Error)
	return order
}

func TestSettleCreditsPhotographersAndRecordsCommission(t *testing.T) {
	f := newFixture(t, "20")
	conn := f.client.DB()
	seller := dbtest.CreateSeller(t, conn, "seller@pix.com")
	buyer := dbtest.CreateBuyer(t, conn)
	sunset := dbtest.CreatePhoto(t, conn, seller.Photographer.ID, "Sunset", true)
	dunes := dbtest.CreatePhoto(t, conn, seller.Photographer.ID, "Dunes", false)
	order := dbtest.CreatePendingOrder(t, conn, buyer.ID, map[uuid.UUID]string{sunset.ID: "100.00", dunes.ID: "50.00"})

	result, err := f.svc.Settle(context.Background(), SettleInput{OrderID: order.ID, ExternalPaymentID: "pay_123", Provider: enums.PaymentProviderAsaas})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSettled, result.Outcome)
	assert.True(t, result.Credited.Equal(decimal.NewFromInt(120)))
	assert.True(t, result.Commission.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, 2, result.Items)

	stored := f.order(t, order.ID)
	assert.Equal(t, enums.OrderStatusPaid, stored.Status)
	assert.Equal(t, "pay_123", *stored.ExternalPaymentID)

	balance := f.balance(t, seller.Photographer.ID)
	require.NotNil(t, balance)
	assert.True(t, balance.Available.Equal(decimal.NewFromInt(120)), balance.Available.String())
	assert.True(t, balance.Blocked.IsZero())

	var entries []models.LedgerEntry
	require.NoError(t, conn.Where("order_id = ?", order.ID).Find(&entries).Error)
	require.Len(t, entries, 4)
	kinds := map[enums.LedgerEntryKind]int{}
	for _, entry := range entries {
		kinds[entry.Kind]++
		assert.Equal(t, enums.LedgerEntryStatusProcessed, entry.Status)
	}
	assert.Equal(t, 2, kinds[enums.LedgerEntryKindSale])
	assert.Equal(t, 2, kinds[enums.LedgerEntryKindCommission])

	var photo models.Photo
	require.NoError(t, conn.Take(&photo, "id = ?", sunset.ID).Error)
	assert.Equal(t, 1, photo.SalesCount)

	var events []models.OutboxEvent
	require.NoError(t, conn.Find(&events).Error)
	require.Len(t, events, 2)
	eventTypes := map[enums.OutboxEventType]int{}
	for _, event := range events {
		eventTypes[event.EventType]++
		assert.Equal(t, order.ID, event.AggregateID)
	}
	assert.Equal(t, 1, eventTypes[enums.EventOrderPaid])
	assert.Equal(t, 1, eventTypes[enums.EventSaleRecorded])

	require.Len(t, f.notifier.sales, 1)
	assert.Equal(t, seller.User.ID, f.notifier.sales[0].PhotographerUserID)
	require.Len(t, f.notifier.approved, 1)
	assert.Equal(t, buyer.ID, f.notifier.approved[0].BuyerID)

	verifier, err := ledger.NewService(f.ledger, staticConfig{})
	require.NoError(t, err)
	require.NoError(t, verifier.VerifyConsistency(context.Background(), seller.Photographer.ID))
}

func TestSettleRedeliveryIsNoOp(t *testing.T) {
	f := newFixture(t, "20")
	conn := f.client.DB()
	seller := dbtest.CreateSeller(t, conn, "seller@pix.com")
	buyer := dbtest.CreateBuyer(t, conn)
	photo := dbtest.CreatePhoto(t, conn, seller.Photographer.ID, "Sunset", false)
	order := dbtest.CreatePendingOrder(t, conn, buyer.ID, map[uuid.UUID]string{photo.ID: "100.00"})
	input := SettleInput{OrderID: order.ID, ExternalPaymentID: "pay_1", Provider: enums.PaymentProviderStripe}

	_, err := f.svc.Settle(context.Background(), input)
	require.NoError(t, err)
	again, err := f.svc.Settle(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, again.Outcome)

	assert.True(t, f.balance(t, seller.Photographer.ID).Available.Equal(decimal.NewFromInt(80)))
	assert.Len(t, f.notifier.sales, 1)
	assert.Len(t, f.notifier.approved, 1)
}

func TestSettleConcurrentDeliveriesCreditOnce(t *testing.T) {
	f := newFixture(t, "20")
	conn := f.client.DB()
	seller := dbtest.CreateSeller(t, conn, "seller@pix.com")
	buyer := dbtest.CreateBuyer(t, conn)
	photo := dbtest.CreatePhoto(t, conn, seller.Photographer.ID, "Sunset", false)
	order := dbtest.CreatePendingOrder(t, conn, buyer.ID, map[uuid.UUID]string{photo.ID: "100.00"})

	const deliveries = 8
	outcomes := make(chan Outcome, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.svc.Settle(context.Background(), SettleInput{OrderID: order.ID, ExternalPaymentID: "pay_1", Provider: enums.PaymentProviderAsaas})
			if err != nil {
				t.Errorf("settle: %v", err)
				return
			}
			outcomes <- result.Outcome
		}()
	}
	wg.Wait()
	close(outcomes)

	settled := 0
	for outcome := range outcomes {
		if outcome == OutcomeSettled {
			settled++
		}
	}
	assert.Equal(t, 1, settled)
	assert.True(t, f.balance(t, seller.Photographer.ID).Available.Equal(decimal.NewFromInt(80)))

	var sales int64
	require.NoError(t, conn.Model(&models.LedgerEntry{}).Where("kind = ?", enums.LedgerEntryKindSale).Count(&sales).Error)
	assert.Equal(t, int64(1), sales)
}

func TestSettleRoundsCreditsToCents(t *testing.T) {
	f := newFixture(t, "15")
	conn := f.client.DB()
	seller := dbtest.CreateSeller(t, conn, "")
	buyer := dbtest.CreateBuyer(t, conn)
	photo := dbtest.CreatePhoto(t, conn, seller.Photographer.ID, "Rain", false)
	order := dbtest.CreatePendingOrder(t, conn, buyer.ID, map[uuid.UUID]string{photo.ID: "33.33"})

	result, err := f.svc.Settle(context.Background(), SettleInput{OrderID: order.ID, ExternalPaymentID: "mp_9", Provider: enums.PaymentProviderMercadoPago})
	require.NoError(t, err)
	assert.Equal(t, "28.33", result.Credited.StringFixed(2))
	assert.Equal(t, "5.00", result.Commission.StringFixed(2))
	assert.True(t, result.Credited.Add(result.Commission).Equal(decimal.RequireFromString("33.33")))
}

func TestSettleMissingOrder(t *testing.T) {
	f := newFixture(t, "20")
	_, err := f.svc.Settle(context.Background(), SettleInput{OrderID: uuid.New(), ExternalPaymentID: "x", Provider: enums.PaymentProviderAsaas})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestSettleValidatesInput(t *testing.T) {
	f := newFixture(t, "20")
	cases := []SettleInput{
		{ExternalPaymentID: "x", Provider: enums.PaymentProviderAsaas},
		{OrderID: uuid.New(), Provider: enums.PaymentProviderAsaas},
		{OrderID: uuid.New(), ExternalPaymentID: "x", Provider: "paypal"},
	}
	for _, input := range cases {
		_, err := f.svc.Settle(context.Background(), input)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "input %+v", input)
	}
}

func TestSettleIntegrityViolationRollsBack(t *testing.T) {
	f := newFixture(t, "20")
	conn := f.client.DB()
	seller := dbtest.CreateSeller(t, conn, "")
	buyer := dbtest.CreateBuyer(t, conn)
	photo := dbtest.CreatePhoto(t, conn, seller.Photographer.ID, "Sunset", false)
	order := dbtest.CreatePendingOrder(t, conn, buyer.ID, map[uuid.UUID]string{photo.ID: "100.00"})

	var item models.OrderItem
	require.NoError(t, conn.Take(&item, "order_id = ?", order.ID).Error)
	require.NoError(t, conn.Create(&models.LedgerEntry{
		PhotographerID: seller.Photographer.ID,
		Kind:           enums.LedgerEntryKindSale,
		Amount:         decimal.NewFromInt(80),
		Description:    "Photo sale: Sunset",
		Status:         enums.LedgerEntryStatusProcessed,
		OrderItemID:    &item.ID,
	}).Error)

	_, err := f.svc.Settle(context.Background(), SettleInput{OrderID: order.ID, ExternalPaymentID: "pay_1", Provider: enums.PaymentProviderAsaas})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	assert.Equal(t, "integrity_violation", typed.Details().(map[string]any)["reason"])

	assert.Equal(t, enums.OrderStatusPending, f.order(t, order.ID).Status)
	assert.Nil(t, f.balance(t, seller.Photographer.ID))
	assert.Empty(t, f.notifier.sales)
}

func TestCancelTransitions(t *testing.T) {
	f := newFixture(t, "20")
	conn := f.client.DB()
	seller := dbtest.CreateSeller(t, conn, "")
	buyer := dbtest.CreateBuyer(t, conn)
	photo := dbtest.CreatePhoto(t, conn, seller.Photographer.ID, "Sunset", false)
	pending := dbtest.CreatePendingOrder(t, conn, buyer.ID, map[uuid.UUID]string{photo.ID: "10.00"})

	result, err := f.svc.Cancel(context.Background(), CancelInput{OrderID: pending.ID, Provider: enums.PaymentProviderAsaas})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, result.Outcome)
	assert.Equal(t, enums.OrderStatusCancelled, f.order(t, pending.ID).Status)

	again, err := f.svc.Cancel(context.Background(), CancelInput{OrderID: pending.ID, Provider: enums.PaymentProviderAsaas})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, again.Outcome)

	_, err = f.svc.Cancel(context.Background(), CancelInput{OrderID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRejectionAfterPaidIsIgnored(t *testing.T) {
	f := newFixture(t, "20")
	conn := f.client.DB()
	seller := dbtest.CreateSeller(t, conn, "")
	buyer := dbtest.CreateBuyer(t, conn)
	photo := dbtest.CreatePhoto(t, conn, seller.Photographer.ID, "Sunset", false)
	order := dbtest.CreatePendingOrder(t, conn, buyer.ID, map[uuid.UUID]string{photo.ID: "100.00"})

	_, err := f.svc.Settle(context.Background(), SettleInput{OrderID: order.ID, ExternalPaymentID: "pay_1", Provider: enums.PaymentProviderAsaas})
	require.NoError(t, err)

	result, err := f.svc.Cancel(context.Background(), CancelInput{OrderID: order.ID, ExternalPaymentID: "pay_1", Provider: enums.PaymentProviderAsaas})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, result.Outcome)
	assert.Equal(t, enums.OrderStatusPaid, f.order(t, order.ID).Status)
	assert.True(t, f.balance(t, seller.Photographer.ID).Available.Equal(decimal.NewFromInt(80)))
}

func TestLateApprovalSettlesCancelledOrder(t *testing.T) {
	f := newFixture(t, "20")
	conn := f.client.DB()
	seller := dbtest.CreateSeller(t, conn, "")
	buyer := dbtest.CreateBuyer(t, conn)
	photo := dbtest.CreatePhoto(t, conn, seller.Photographer.ID, "Sunset", false)
	order := dbtest.CreatePendingOrder(t, conn, buyer.ID, map[uuid.UUID]string{photo.ID: "100.00"})

	_, err := f.svc.Cancel(context.Background(), CancelInput{OrderID: order.ID})
	require.NoError(t, err)

	result, err := f.svc.Settle(context.Background(), SettleInput{OrderID: order.ID, ExternalPaymentID: "pay_late", Provider: enums.PaymentProviderAsaas})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSettled, result.Outcome)
	assert.Equal(t, enums.OrderStatusPaid, f.order(t, order.ID).Status)
}

func TestNewServiceValidatesParams(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
}
