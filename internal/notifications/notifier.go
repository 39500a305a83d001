package notifications

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gtclicks/ledger-backend/pkg/enums"
)

// SaleNotice tells a photographer that an order credited their balance.
type SaleNotice struct {
	PhotographerUserID uuid.UUID
	OrderID            uuid.UUID
	PhotoTitles        []string
	Credited           decimal.Decimal
}

// OrderLine is one purchased photo shown to the buyer.
type OrderLine struct {
	Title string
	Price decimal.Decimal
}

// OrderApprovedNotice tells a buyer that the payment cleared.
type OrderApprovedNotice struct {
	OrderID uuid.UUID
	BuyerID uuid.UUID
	Total   decimal.Decimal
	Items   []OrderLine
}

// WithdrawalNotice tells a photographer how a withdrawal was resolved.
type WithdrawalNotice struct {
	PhotographerUserID uuid.UUID
	WithdrawalID       uuid.UUID
	Amount             decimal.Decimal
	Status             enums.WithdrawalStatus
	Note               string
}

// Notifier receives post-commit side effects. Implementations swallow their
// own failures; callers never branch on delivery.
type Notifier interface {
	SaleRecorded(ctx context.Context, notice SaleNotice)
	OrderApproved(ctx context.Context, notice OrderApprovedNotice)
	WithdrawalResolved(ctx context.Context, notice WithdrawalNotice)
}

// Nop discards every notice.
type Nop struct{}

func (Nop) SaleRecorded(context.Context, SaleNotice) {}
func (Nop) OrderApproved(context.Context, OrderApprovedNotice) {}
func (Nop) WithdrawalResolved(context.Context, WithdrawalNotice) {}
