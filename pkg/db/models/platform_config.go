package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PlatformConfig is one version of a numeric platform setting.
type PlatformConfig struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Key       string          `gorm:"column:key;not null;uniqueIndex:ux_platform_configs_key_version,priority:1"`
	Value     decimal.Decimal `gorm:"column:value;type:numeric(12,2);not null"`
	Version   int             `gorm:"column:version;not null;uniqueIndex:ux_platform_configs_key_version,priority:2"`
	UpdatedBy *uuid.UUID      `gorm:"column:updated_by;type:uuid"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (c *PlatformConfig) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
