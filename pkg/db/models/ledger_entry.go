package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gtclicks/ledger-backend/pkg/enums"
)

// LedgerEntry is an append-only money movement. Only Status may change,
// and only away from PENDING.
type LedgerEntry struct {
	ID             uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	PhotographerID uuid.UUID               `gorm:"column:photographer_id;type:uuid;not null"`
	Kind           enums.LedgerEntryKind   `gorm:"column:kind;type:ledger_entry_kind;not null;uniqueIndex:ux_ledger_entries_item_kind,priority:2"`
	Amount         decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null"`
	Description    string                  `gorm:"column:description;not null"`
	Status         enums.LedgerEntryStatus `gorm:"column:status;type:ledger_entry_status;not null"`
	WithdrawalID   *uuid.UUID              `gorm:"column:withdrawal_id;type:uuid"`
	OrderID        *uuid.UUID              `gorm:"column:order_id;type:uuid"`
	OrderItemID    *uuid.UUID              `gorm:"column:order_item_id;type:uuid;uniqueIndex:ux_ledger_entries_item_kind,priority:1"`
	CreatedAt      time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (e *LedgerEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
