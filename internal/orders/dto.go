package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementItem is an order item joined with the photo and the photographer
// who owns it.
type SettlementItem struct {
	OrderItemID        uuid.UUID       `gorm:"column:order_item_id"`
	PricePaid          decimal.Decimal `gorm:"column:price_paid"`
	PhotoID            uuid.UUID       `gorm:"column:photo_id"`
	PhotoTitle         string          `gorm:"column:photo_title"`
	CollectionID       *uuid.UUID      `gorm:"column:collection_id"`
	PhotographerID     uuid.UUID       `gorm:"column:photographer_id"`
	PhotographerUserID uuid.UUID       `gorm:"column:photographer_user_id"`
}

// VerifyResult reports the outcome of a manual payment reconciliation.
type VerifyResult struct {
	OrderID uuid.UUID `json:"order_id"`
	Status  string    `json:"status"`
	Settled bool      `json:"settled"`
	Message string    `json:"message,omitempty"`
}
