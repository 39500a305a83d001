package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gtclicks/ledger-backend/pkg/enums"
)

// OrderPaidEvent is emitted once per order when settlement commits.
type OrderPaidEvent struct {
	OrderID           uuid.UUID             `json:"order_id"`
	BuyerID           uuid.UUID             `json:"buyer_id"`
	Total             decimal.Decimal       `json:"total"`
	Provider          enums.PaymentProvider `json:"provider"`
	ExternalPaymentID string                `json:"external_payment_id"`
	PaidAt            time.Time             `json:"paid_at"`
}

// SaleRecordedEvent is emitted per photographer credited by a settlement.
type SaleRecordedEvent struct {
	OrderID        uuid.UUID       `json:"order_id"`
	PhotographerID uuid.UUID       `json:"photographer_id"`
	Credited       decimal.Decimal `json:"credited"`
	Commission     decimal.Decimal `json:"commission"`
	ItemCount      int             `json:"item_count"`
}

// WithdrawalResolvedEvent is emitted when a withdrawal reaches an outcome
// the photographer is told about.
type WithdrawalResolvedEvent struct {
	WithdrawalID   uuid.UUID              `json:"withdrawal_id"`
	PhotographerID uuid.UUID              `json:"photographer_id"`
	Amount         decimal.Decimal        `json:"amount"`
	Status         enums.WithdrawalStatus `json:"status"`
	Note           string                 `json:"note,omitempty"`
}
