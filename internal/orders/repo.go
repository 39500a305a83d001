package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gtclicks/ledger-backend/internal/repo"
	"github.com/gtclicks/ledger-backend/pkg/db/models"
	"github.com/gtclicks/ledger-backend/pkg/enums"
)

type repository struct {
	repo.Base
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.WithTx(tx)}
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.DB(ctx).Where("id = ?", orderID).Take(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) Exists(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	if err := r.DB(ctx).Model(&models.Order{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkPaid claims the order for settlement. Only one caller can observe true
// for a given order.
func (r *repository) MarkPaid(ctx context.Context, input MarkPaidInput) (bool, error) {
	return repo.Affected(r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status <> ?", input.OrderID, enums.OrderStatusPaid).
		Updates(map[string]any{
			"status":              enums.OrderStatusPaid,
			"external_payment_id": input.ExternalPaymentID,
			"provider":            input.Provider,
			"paid_at":             input.PaidAt,
			"updated_at":          input.PaidAt,
		}))
}

func (r *repository) MarkCancelled(ctx context.Context, orderID uuid.UUID) (bool, error) {
	return repo.Affected(r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusPending).
		Updates(map[string]any{
			"status":     enums.OrderStatusCancelled,
			"updated_at": time.Now().UTC(),
		}))
}

// CancelExpired cancels up to limit PENDING orders created before cutoff and
// returns the ids it cancelled. Each row is claimed with its own conditional
// update so a concurrent settlement always wins.
func (r *repository) CancelExpired(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	var candidates []uuid.UUID
	if err := r.DB(ctx).
		Model(&models.Order{}).
		Where("status = ? AND created_at < ?", enums.OrderStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Pluck("id", &candidates).Error; err != nil {
		return nil, err
	}

	cancelled := make([]uuid.UUID, 0, len(candidates))
	for _, id := range candidates {
		ok, err := r.MarkCancelled(ctx, id)
		if err != nil {
			return cancelled, err
		}
		if ok {
			cancelled = append(cancelled, id)
		}
	}
	return cancelled, nil
}

func (r *repository) LoadItemsWithPhotoAndPhotographer(ctx context.Context, orderID uuid.UUID) ([]SettlementItem, error) {
	var items []SettlementItem
	err := r.DB(ctx).
		Table("order_items AS oi").
		Select(`oi.id AS order_item_id, oi.price_paid AS price_paid, p.id AS photo_id, p.title AS photo_title,
p.collection_id AS collection_id, ph.id AS photographer_id, ph.user_id AS photographer_user_id`).
		Joins("JOIN photos p ON p.id = oi.photo_id").
		Joins("JOIN photographers ph ON ph.id = p.photographer_id").
		Where("oi.order_id = ?", orderID).
		Order("oi.created_at ASC, oi.id ASC").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) IncrementSalesCounts(ctx context.Context, photoID uuid.UUID, collectionID *uuid.UUID) error {
	if err := r.DB(ctx).
		Model(&models.Photo{}).
		Where("id = ?", photoID).
		UpdateColumn("sales_count", gorm.Expr("sales_count + 1")).Error; err != nil {
		return err
	}
	if collectionID == nil {
		return nil
	}
	return r.DB(ctx).
		Model(&models.Collection{}).
		Where("id = ?", *collectionID).
		UpdateColumn("sales_count", gorm.Expr("sales_count + 1")).Error
}

func (r *repository) FindBuyer(ctx context.Context, buyerID uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.DB(ctx).Where("id = ?", buyerID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
