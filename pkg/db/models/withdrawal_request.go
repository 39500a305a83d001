package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gtclicks/ledger-backend/pkg/enums"
)

// WithdrawalRequest tracks a photographer payout through the transfer lifecycle.
type WithdrawalRequest struct {
	ID                 uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	PhotographerID     uuid.UUID              `gorm:"column:photographer_id;type:uuid;not null"`
	Amount             decimal.Decimal        `gorm:"column:amount;type:numeric(12,2);not null"`
	PixKey             string                 `gorm:"column:pix_key;not null"`
	Status             enums.WithdrawalStatus `gorm:"column:status;type:withdrawal_status;not null"`
	ManualRequired     bool                   `gorm:"column:manual_required;not null;default:false"`
	ExternalTransferID *string                `gorm:"column:external_transfer_id"`
	Note               *string                `gorm:"column:note"`
	ProcessedAt        *time.Time             `gorm:"column:processed_at"`
	CreatedAt          time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *WithdrawalRequest) BeforeCreate(*gorm.DB) error {
	ensureID(&w.ID)
	return nil
}
