package payouts

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtclicks/ledger-backend/pkg/db/dbtest"
	"github.com/gtclicks/ledger-backend/pkg/db/models"
	"github.com/gtclicks/ledger-backend/pkg/enums"
	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
)

func TestPostgresConcurrentRequestsNeverOverdraw(t *testing.T) {
	f := newFixtureOn(t, dbtest.NewPostgres(t), 100, nil)

	const requests = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		refused  int
	)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Request(context.Background(), RequestInput{
				PhotographerID: f.seller.Photographer.ID,
				Amount:         decimal.NewFromInt(30),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case pkgerrors.IsCode(err, pkgerrors.CodeStateConflict):
				refused++
			default:
				t.Errorf("request: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, accepted)
	assert.Equal(t, requests-3, refused)

	f.assertBalance(t, 10, 90)

	var pending int64
	require.NoError(t, f.conn.Model(&models.WithdrawalRequest{}).Where("status = ?", enums.WithdrawalStatusPending).Count(&pending).Error)
	assert.Equal(t, int64(3), pending)
	f.assertConsistent(t)
}
