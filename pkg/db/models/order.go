package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gtclicks/ledger-backend/pkg/enums"
)

// Order is a buyer purchase settled by exactly one payment notification.
type Order struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID           uuid.UUID              `gorm:"column:buyer_id;type:uuid;not null"`
	Total             decimal.Decimal        `gorm:"column:total;type:numeric(12,2);not null"`
	Status            enums.OrderStatus      `gorm:"column:status;type:order_status;not null"`
	ExternalPaymentID *string                `gorm:"column:external_payment_id"`
	Provider          *enums.PaymentProvider `gorm:"column:provider"`
	PaidAt            *time.Time             `gorm:"column:paid_at"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem is one licensed photo inside an order. PricePaid never changes.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	PhotoID   uuid.UUID       `gorm:"column:photo_id;type:uuid;not null"`
	LicenseID *uuid.UUID      `gorm:"column:license_id;type:uuid"`
	PricePaid decimal.Decimal `gorm:"column:price_paid;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
