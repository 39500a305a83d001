package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gtclicks/ledger-backend/pkg/enums"
)

// AdminActivity is an append-only audit row for privileged actions.
type AdminActivity struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	AdminID    uuid.UUID         `gorm:"column:admin_id;type:uuid;not null"`
	Action     enums.AdminAction `gorm:"column:action;not null"`
	TargetType string            `gorm:"column:target_type;not null"`
	TargetID   string            `gorm:"column:target_id;not null"`
	Details    json.RawMessage   `gorm:"column:details;type:jsonb"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (a *AdminActivity) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
