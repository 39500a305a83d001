package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gtclicks/ledger-backend/pkg/db/models"
	"github.com/gtclicks/ledger-backend/pkg/enums"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Exists(ctx context.Context, orderID uuid.UUID) (bool, error)
	MarkPaid(ctx context.Context, input MarkPaidInput) (bool, error)
	MarkCancelled(ctx context.Context, orderID uuid.UUID) (bool, error)
	CancelExpired(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
	LoadItemsWithPhotoAndPhotographer(ctx context.Context, orderID uuid.UUID) ([]SettlementItem, error)
	IncrementSalesCounts(ctx context.Context, photoID uuid.UUID, collectionID *uuid.UUID) error
	FindBuyer(ctx context.Context, buyerID uuid.UUID) (*models.User, error)
}

// MarkPaidInput carries the conditional PENDING->PAID claim.
type MarkPaidInput struct {
	OrderID           uuid.UUID
	ExternalPaymentID string
	Provider          enums.PaymentProvider
	PaidAt            time.Time
}
