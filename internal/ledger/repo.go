package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gtclicks/ledger-backend/internal/repo"
	"github.com/gtclicks/ledger-backend/pkg/db/models"
	"github.com/gtclicks/ledger-backend/pkg/enums"
)

var (
	// ErrInsufficientFunds is returned when a guarded debit matches no row.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrBalanceInvariant is returned when a post-write check finds a negative bucket.
	ErrBalanceInvariant = errors.New("balance invariant violated")
)

// Totals aggregates a photographer's ledger history.
type Totals struct {
	TotalSold          decimal.Decimal `gorm:"column:total_sold"`
	TotalWithdrawn     decimal.Decimal `gorm:"column:total_withdrawn"`
	PendingWithdrawals decimal.Decimal `gorm:"column:pending_withdrawals"`
}

// Repository manages balances and ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindBalance(ctx context.Context, photographerID uuid.UUID) (*models.Balance, error)
	ListBalances(ctx context.Context, afterID uuid.UUID, limit int) ([]models.Balance, error)
	Credit(ctx context.Context, photographerID uuid.UUID, amount decimal.Decimal) error
	Reserve(ctx context.Context, photographerID uuid.UUID, amount decimal.Decimal) error
	Release(ctx context.Context, photographerID uuid.UUID, amount decimal.Decimal) error
	ConsumeBlocked(ctx context.Context, photographerID uuid.UUID, amount decimal.Decimal) error
	CreateEntries(ctx context.Context, entries ...*models.LedgerEntry) error
	SetWithdrawalEntryStatus(ctx context.Context, withdrawalID uuid.UUID, from, to enums.LedgerEntryStatus) (bool, error)
	ListEntries(ctx context.Context, photographerID uuid.UUID, limit int) ([]models.LedgerEntry, error)
	Totals(ctx context.Context, photographerID uuid.UUID) (Totals, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.WithTx(tx)}
}

func (r *repository) FindBalance(ctx context.Context, photographerID uuid.UUID) (*models.Balance, error) {
	return repo.TakeOrNil[models.Balance](r.DB(ctx).Where("photographer_id = ?", photographerID))
}

func (r *repository) ListBalances(ctx context.Context, afterID uuid.UUID, limit int) ([]models.Balance, error) {
	var balances []models.Balance
	query := r.DB(ctx).Order("photographer_id ASC").Limit(limit)
	if afterID != uuid.Nil {
		query = query.Where("photographer_id > ?", afterID)
	}
	if err := query.Find(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}

// Credit adds amount to available, creating the balance row on first credit.
func (r *repository) Credit(ctx context.Context, photographerID uuid.UUID, amount decimal.Decimal) error {
	balance := models.Balance{PhotographerID: photographerID, Available: amount}
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "photographer_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"available":  gorm.Expr("balances.available + excluded.available"),
			"updated_at": gorm.Expr("excluded.updated_at"),
		}),
	}).Create(&balance).Error
}

// Reserve moves amount from available to blocked when available covers it.
func (r *repository) Reserve(ctx context.Context, photographerID uuid.UUID, amount decimal.Decimal) error {
	return r.guardedMove(ctx, photographerID, "available >= ?", amount, map[string]any{
		"available": gorm.Expr("available - ?", amount),
		"blocked":   gorm.Expr("blocked + ?", amount),
	})
}

// Release returns a reservation from blocked to available.
func (r *repository) Release(ctx context.Context, photographerID uuid.UUID, amount decimal.Decimal) error {
	return r.guardedMove(ctx, photographerID, "blocked >= ?", amount, map[string]any{
		"available": gorm.Expr("available + ?", amount),
		"blocked":   gorm.Expr("blocked - ?", amount),
	})
}

// ConsumeBlocked drops a reservation once the money has left the platform.
func (r *repository) ConsumeBlocked(ctx context.Context, photographerID uuid.UUID, amount decimal.Decimal) error {
	return r.guardedMove(ctx, photographerID, "blocked >= ?", amount, map[string]any{
		"blocked": gorm.Expr("blocked - ?", amount),
	})
}

func (r *repository) guardedMove(ctx context.Context, photographerID uuid.UUID, guard string, amount decimal.Decimal, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	ok, err := repo.Affected(r.DB(ctx).
		Model(&models.Balance{}).
		Where("photographer_id = ?", photographerID).
		Where(guard, amount).
		Updates(updates))
	if err != nil {
		return err
	}
	if !ok {
		return ErrInsufficientFunds
	}

	balance, err := r.FindBalance(ctx, photographerID)
	if err != nil {
		return err
	}
	if balance == nil || balance.Available.IsNegative() || balance.Blocked.IsNegative() {
		return ErrBalanceInvariant
	}
	return nil
}

func (r *repository) CreateEntries(ctx context.Context, entries ...*models.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.DB(ctx).Create(entries).Error
}

func (r *repository) SetWithdrawalEntryStatus(ctx context.Context, withdrawalID uuid.UUID, from, to enums.LedgerEntryStatus) (bool, error) {
	return repo.Affected(r.DB(ctx).
		Model(&models.LedgerEntry{}).
		Where("withdrawal_id = ? AND kind = ? AND status = ?", withdrawalID, enums.LedgerEntryKindWithdrawal, from).
		Update("status", to))
}

func (r *repository) ListEntries(ctx context.Context, photographerID uuid.UUID, limit int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	if err := r.DB(ctx).
		Where("photographer_id = ?", photographerID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) Totals(ctx context.Context, photographerID uuid.UUID) (Totals, error) {
	var totals Totals
	err := r.DB(ctx).
		Model(&models.LedgerEntry{}).
		Select(`COALESCE(SUM(CASE WHEN kind = ? THEN amount ELSE 0 END), 0) AS total_sold,
COALESCE(SUM(CASE WHEN kind = ? AND status = ? THEN -amount ELSE 0 END), 0) AS total_withdrawn,
COALESCE(SUM(CASE WHEN kind = ? AND status = ? THEN -amount ELSE 0 END), 0) AS pending_withdrawals`,
			enums.LedgerEntryKindSale,
			enums.LedgerEntryKindWithdrawal, enums.LedgerEntryStatusProcessed,
			enums.LedgerEntryKindWithdrawal, enums.LedgerEntryStatusPending,
		).
		Where("photographer_id = ?", photographerID).
		Scan(&totals).Error
	if err != nil {
		return Totals{}, err
	}
	return totals, nil
}
