package platformconfig

import (
	"cmp"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gtclicks/ledger-backend/internal/audit"
	"github.com/gtclicks/ledger-backend/pkg/db"
	"github.com/gtclicks/ledger-backend/pkg/db/models"
	"github.com/gtclicks/ledger-backend/pkg/enums"
	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
	"github.com/gtclicks/ledger-backend/pkg/logger"
	"github.com/gtclicks/ledger-backend/pkg/redis"
)

const (
	KeyCommissionPct = "COMMISSION_PCT"
	KeyMinWithdrawal = "MIN_WITHDRAWAL"
)

const (
	defaultInvalidateDelay = 500 * time.Millisecond
	invalidateTimeout      = 2 * time.Second
)

var defaults = map[string]decimal.Decimal{
	KeyCommissionPct: decimal.NewFromInt(20),
	KeyMinWithdrawal: decimal.NewFromInt(50),
}

// Default returns the built-in value for key.
func Default(key string) (decimal.Decimal, bool) {
	value, ok := defaults[key]
	return value, ok
}

// Cache is the subset of the redis client used to memoize config reads.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	ConfigKey(key string) string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type auditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) error
}

type ServiceParams struct {
	Repository Repository
	TxRunner   txRunner
	Cache      Cache
	CacheTTL   time.Duration
	Audit      auditRecorder
	Logger     *logger.Logger

	// InvalidateDelay is how long after a write the cache key is dropped a
	// second time, clearing values stored by reads that raced the write.
	InvalidateDelay time.Duration
}

// Service resolves numeric platform settings by highest version.
type Service struct {
	repo     Repository
	tx       txRunner
	cache    Cache
	cacheTTL time.Duration
	audit    auditRecorder
	logg     *logger.Logger

	invalidateDelay time.Duration
	afterFunc       func(time.Duration, func())
}

// SetInput appends a new version of a setting.
type SetInput struct {
	Key     string
	Value   decimal.Decimal
	AdminID uuid.UUID
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("platform config repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &Service{
		repo:     params.Repository,
		tx:       params.TxRunner,
		cache:    params.Cache,
		cacheTTL: params.CacheTTL,
		audit:    params.Audit,
		logg:     params.Logger,

		invalidateDelay: cmp.Or(params.InvalidateDelay, defaultInvalidateDelay),
		afterFunc:       func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}, nil
}

// GetNumber returns the value of the highest version of key, falling back to
// the built-in default when no version was ever written.
func (s *Service) GetNumber(ctx context.Context, key string) (decimal.Decimal, error) {
	key = normalizeKey(key)
	if value, ok := s.cached(ctx, key); ok {
		return value, nil
	}

	row, err := s.repo.Latest(ctx, key)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load platform config")
	}

	var value decimal.Decimal
	switch {
	case row != nil:
		value = row.Value
	default:
		fallback, ok := defaults[key]
		if !ok {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "platform config key not found")
		}
		value = fallback
	}

	s.store(ctx, key, value)
	return value, nil
}

// Set validates and appends a new version, recording the change for audit in
// the same transaction.
func (s *Service) Set(ctx context.Context, input SetInput) (*models.PlatformConfig, error) {
	key := normalizeKey(input.Key)
	if err := validate(key, input.Value); err != nil {
		return nil, err
	}
	if input.AdminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin id is required")
	}

	var created *models.PlatformConfig
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		row, err := s.repo.WithTx(tx).Append(ctx, key, input.Value, input.AdminID)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "concurrent platform config update")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append platform config")
		}
		created = row
		return s.audit.Record(ctx, tx, audit.Entry{
			AdminID:    input.AdminID,
			Action:     enums.AdminActionConfigUpdated,
			TargetType: audit.TargetPlatformConfig,
			TargetID:   key,
			Details: map[string]any{
				"value":   row.Value.StringFixed(2),
				"version": row.Version,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, key)
	return created, nil
}

// invalidate drops the cached value now and once more after invalidateDelay.
// A GetNumber that loaded the previous version before the commit may store it
// after the first delete; the second delete clears it.
func (s *Service) invalidate(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	cacheKey := s.cache.ConfigKey(key)
	if err := s.cache.Del(ctx, cacheKey); err != nil {
		s.warn(ctx, key, "platformconfig.cache_invalidate_failed", err)
	}
	detached := context.WithoutCancel(ctx)
	s.afterFunc(s.invalidateDelay, func() {
		ctx, cancel := context.WithTimeout(detached, invalidateTimeout)
		defer cancel()
		if err := s.cache.Del(ctx, cacheKey); err != nil {
			s.warn(ctx, key, "platformconfig.cache_invalidate_failed", err)
		}
	})
}

// History lists the most recent versions of key.
func (s *Service) History(ctx context.Context, key string, limit int) ([]models.PlatformConfig, error) {
	rows, err := s.repo.History(ctx, normalizeKey(key), limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list platform config history")
	}
	return rows, nil
}

func (s *Service) cached(ctx context.Context, key string) (decimal.Decimal, bool) {
	if s.cache == nil {
		return decimal.Zero, false
	}
	raw, err := s.cache.Get(ctx, s.cache.ConfigKey(key))
	if err != nil {
		if !redis.IsNil(err) {
			s.warn(ctx, key, "platformconfig.cache_read_failed", err)
		}
		return decimal.Zero, false
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}

func (s *Service) store(ctx context.Context, key string, value decimal.Decimal) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	if err := s.cache.Set(ctx, s.cache.ConfigKey(key), value.String(), s.cacheTTL); err != nil {
		s.warn(ctx, key, "platformconfig.cache_write_failed", err)
	}
}

func (s *Service) warn(ctx context.Context, key, msg string, err error) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"key": key, "error": err.Error()})
	s.logg.Warn(ctx, msg)
}

func validate(key string, value decimal.Decimal) error {
	switch key {
	case KeyCommissionPct:
		if value.IsNegative() || value.GreaterThan(decimal.NewFromInt(100)) {
			return pkgerrors.New(pkgerrors.CodeValidation, "commission percentage must be between 0 and 100")
		}
	case KeyMinWithdrawal:
		if !value.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "minimum withdrawal must be positive")
		}
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown platform config key").WithDetails(map[string]any{"key": key})
	}
	if !value.Equal(value.Round(2)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "value supports at most two decimal places")
	}
	return nil
}

func normalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}
