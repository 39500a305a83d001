package settlement

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtclicks/ledger-backend/internal/ledger"
	"github.com/gtclicks/ledger-backend/pkg/db/dbtest"
	"github.com/gtclicks/ledger-backend/pkg/db/models"
	"github.com/gtclicks/ledger-backend/pkg/enums"
)

func TestPostgresConcurrentDeliveriesCreditOnce(t *testing.T) {
	f := newFixtureOn(t, dbtest.NewPostgres(t), "20")
	conn := f.client.DB()
	seller := dbtest.CreateSeller(t, conn, "seller@pix.com")
	buyer := dbtest.CreateBuyer(t, conn)
	photo := dbtest.CreatePhoto(t, conn, seller.Photographer.ID, "Harbor", true)
	order := dbtest.CreatePendingOrder(t, conn, buyer.ID, map[uuid.UUID]string{photo.ID: "100.00"})

	const deliveries = 16
	outcomes := make(chan Outcome, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.svc.Settle(context.Background(), SettleInput{OrderID: order.ID, ExternalPaymentID: "pay_pg", Provider: enums.PaymentProviderMercadoPago})
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
		} else {
			assert.Equal(t, OutcomeAlreadyProcessed, outcome)
		}
	}
	assert.Equal(t, 1, settled)

	balance := f.balance(t, seller.Photographer.ID)
	require.NotNil(t, balance)
	assert.True(t, balance.Available.Equal(decimal.NewFromInt(80)), balance.Available.String())

	var sales int64
	require.NoError(t, conn.Model(&models.LedgerEntry{}).Where("order_id = ? AND kind = ?", order.ID, enums.LedgerEntryKindSale).Count(&sales).Error)
	assert.Equal(t, int64(1), sales)

	svc, err := ledger.NewService(f.ledger, staticConfig{})
	require.NoError(t, err)
	assert.NoError(t, svc.VerifyConsistency(context.Background(), seller.Photographer.ID))
}
