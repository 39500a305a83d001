package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Balance holds a photographer's spendable and reserved funds.
type Balance struct {
	PhotographerID uuid.UUID       `gorm:"column:photographer_id;type:uuid;primaryKey"`
	Available      decimal.Decimal `gorm:"column:available;type:numeric(12,2);not null;default:0;check:chk_balances_available,available >= 0"`
	Blocked        decimal.Decimal `gorm:"column:blocked;type:numeric(12,2);not null;default:0;check:chk_balances_blocked,blocked >= 0"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
