package platformconfig

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtclicks/ledger-backend/internal/audit"
	"github.com/gtclicks/ledger-backend/pkg/db"
	"github.com/gtclicks/ledger-backend/pkg/db/dbtest"
	"github.com/gtclicks/ledger-backend/pkg/db/models"
	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
)

type memoryCache struct {
	values map[string]string
	reads  int
	getErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string]string{}}
}

func (m *memoryCache) Get(_ context.Context, key string) (string, error) {
	m.reads++
	if m.getErr != nil {
		return "", m.getErr
	}
	value, ok := m.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.values[key] = value.(string)
	return nil
}

func (m *memoryCache) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *memoryCache) ConfigKey(key string) string {
	return "cfg:" + key
}

func newTestService(t *testing.T, cache Cache) (*Service, *db.Client) {
	t.Helper()
	client := dbtest.New(t)
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(client.DB()),
		TxRunner:   client,
		Cache:      cache,
		CacheTTL:   time.Minute,
		Audit:      audit.NewRecorder(client.DB(), nil),
	})
	require.NoError(t, err)
	// delayed invalidations run only when a test triggers them
	svc.afterFunc = func(time.Duration, func()) {}
	return svc, client
}

func TestGetNumberFallsBackToDefaults(t *testing.T) {
	svc, _ := newTestService(t, nil)

	pct, err := svc.GetNumber(context.Background(), KeyCommissionPct)
	require.NoError(t, err)
	assert.True(t, pct.Equal(decimal.NewFromInt(20)))

	minimum, err := svc.GetNumber(context.Background(), " min_withdrawal ")
	require.NoError(t, err)
	assert.True(t, minimum.Equal(decimal.NewFromInt(50)))

	_, err = svc.GetNumber(context.Background(), "UNKNOWN")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSetAppendsVersionAndHighestWins(t *testing.T) {
	svc, client := newTestService(t, nil)
	adminID := uuid.New()

	first, err := svc.Set(context.Background(), SetInput{Key: KeyCommissionPct, Value: decimal.NewFromInt(15), AdminID: adminID})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)

	second, err := svc.Set(context.Background(), SetInput{Key: KeyCommissionPct, Value: decimal.NewFromInt(25), AdminID: adminID})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)

	pct, err := svc.GetNumber(context.Background(), KeyCommissionPct)
	require.NoError(t, err)
	assert.True(t, pct.Equal(decimal.NewFromInt(25)))

	history, err := svc.History(context.Background(), KeyCommissionPct, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[0].Version)

	var audits []models.AdminActivity
	require.NoError(t, client.DB().Where("target_id = ?", KeyCommissionPct).Find(&audits).Error)
	assert.Len(t, audits, 2)
}

func TestSetRejectsDuplicateVersion(t *testing.T) {
	svc, client := newTestService(t, nil)
	require.NoError(t, client.DB().Create(&models.PlatformConfig{Key: KeyMinWithdrawal, Value: decimal.NewFromInt(60), Version: 1}).Error)

	err := client.DB().Create(&models.PlatformConfig{Key: KeyMinWithdrawal, Value: decimal.NewFromInt(70), Version: 1}).Error
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))

	row, err := svc.Set(context.Background(), SetInput{Key: KeyMinWithdrawal, Value: decimal.NewFromInt(70), AdminID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, 2, row.Version)
}

func TestSetValidates(t *testing.T) {
	svc, _ := newTestService(t, nil)
	admin := uuid.New()

	cases := []SetInput{
		{Key: KeyCommissionPct, Value: decimal.NewFromInt(101), AdminID: admin},
		{Key: KeyCommissionPct, Value: decimal.NewFromInt(-1), AdminID: admin},
		{Key: KeyMinWithdrawal, Value: decimal.Zero, AdminID: admin},
		{Key: KeyMinWithdrawal, Value: decimal.RequireFromString("10.555"), AdminID: admin},
		{Key: "OTHER", Value: decimal.NewFromInt(1), AdminID: admin},
		{Key: KeyMinWithdrawal, Value: decimal.NewFromInt(10)},
	}
	for _, input := range cases {
		_, err := svc.Set(context.Background(), input)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "input %+v: %v", input, err)
	}
}

func TestGetNumberUsesCacheAndSetInvalidates(t *testing.T) {
	cache := newMemoryCache()
	svc, _ := newTestService(t, cache)

	_, err := svc.GetNumber(context.Background(), KeyCommissionPct)
	require.NoError(t, err)
	assert.Equal(t, "20", cache.values["cfg:"+KeyCommissionPct])

	cache.values["cfg:"+KeyCommissionPct] = "30"
	pct, err := svc.GetNumber(context.Background(), KeyCommissionPct)
	require.NoError(t, err)
	assert.True(t, pct.Equal(decimal.NewFromInt(30)))

	_, err = svc.Set(context.Background(), SetInput{Key: KeyCommissionPct, Value: decimal.NewFromInt(10), AdminID: uuid.New()})
	require.NoError(t, err)
	_, cached := cache.values["cfg:"+KeyCommissionPct]
	assert.False(t, cached)

	pct, err = svc.GetNumber(context.Background(), KeyCommissionPct)
	require.NoError(t, err)
	assert.True(t, pct.Equal(decimal.NewFromInt(10)))
}

func TestSetClearsStaleWriteBack(t *testing.T) {
	cache := newMemoryCache()
	svc, _ := newTestService(t, cache)
	svc.invalidateDelay = 250 * time.Millisecond

	var delays []time.Duration
	var pending []func()
	svc.afterFunc = func(d time.Duration, f func()) {
		delays = append(delays, d)
		pending = append(pending, f)
	}

	_, err := svc.Set(context.Background(), SetInput{Key: KeyCommissionPct, Value: decimal.NewFromInt(12), AdminID: uuid.New()})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, []time.Duration{250 * time.Millisecond}, delays)

	// a read that loaded the default before the commit stores it afterwards
	cache.values["cfg:"+KeyCommissionPct] = "20"
	pct, err := svc.GetNumber(context.Background(), KeyCommissionPct)
	require.NoError(t, err)
	assert.True(t, pct.Equal(decimal.NewFromInt(20)))

	pending[0]()
	pct, err = svc.GetNumber(context.Background(), KeyCommissionPct)
	require.NoError(t, err)
	assert.True(t, pct.Equal(decimal.NewFromInt(12)))
}

func TestGetNumberIgnoresCacheErrors(t *testing.T) {
	cache := newMemoryCache()
	cache.getErr = errors.New("redis down")
	svc, _ := newTestService(t, cache)

	pct, err := svc.GetNumber(context.Background(), KeyCommissionPct)
	require.NoError(t, err)
	assert.True(t, pct.Equal(decimal.NewFromInt(20)))
}
