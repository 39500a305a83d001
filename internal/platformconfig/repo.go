package platformconfig

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gtclicks/ledger-backend/internal/repo"
	"github.com/gtclicks/ledger-backend/pkg/db/models"
)

// Repository reads and appends platform config versions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Latest(ctx context.Context, key string) (*models.PlatformConfig, error)
	Append(ctx context.Context, key string, value decimal.Decimal, updatedBy uuid.UUID) (*models.PlatformConfig, error)
	History(ctx context.Context, key string, limit int) ([]models.PlatformConfig, error)
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.WithTx(tx)}
}

// Latest returns the highest version for key, or nil when none exists.
func (r *repository) Latest(ctx context.Context, key string) (*models.PlatformConfig, error) {
	return repo.TakeOrNil[models.PlatformConfig](r.DB(ctx).Where("key = ?", key).Order("version DESC"))
}

// Append writes version max+1. The (key, version) unique index rejects a
// concurrent writer that computed the same version.
func (r *repository) Append(ctx context.Context, key string, value decimal.Decimal, updatedBy uuid.UUID) (*models.PlatformConfig, error) {
	latest, err := r.Latest(ctx, key)
	if err != nil {
		return nil, err
	}
	version := 1
	if latest != nil {
		version = latest.Version + 1
	}
	row := &models.PlatformConfig{
		Key:     key,
		Value:   value,
		Version: version,
	}
	if updatedBy != uuid.Nil {
		row.UpdatedBy = &updatedBy
	}
	if err := r.DB(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *repository) History(ctx context.Context, key string, limit int) ([]models.PlatformConfig, error) {
	var rows []models.PlatformConfig
	if err := r.DB(ctx).Where("key = ?", key).Order("version DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
