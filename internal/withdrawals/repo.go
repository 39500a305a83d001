package withdrawals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gtclicks/ledger-backend/internal/repo"
	"github.com/gtclicks/ledger-backend/pkg/db/models"
	"github.com/gtclicks/ledger-backend/pkg/enums"
	"github.com/gtclicks/ledger-backend/pkg/pagination"
)

// Repository persists withdrawal requests. Every state change goes through
// Transition so concurrent resolvers cannot both win.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, withdrawal *models.WithdrawalRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
	Transition(ctx context.Context, id uuid.UUID, from enums.WithdrawalStatus, updates Updates) (bool, error)
	Annotate(ctx context.Context, id uuid.UUID, status enums.WithdrawalStatus, updates Updates) (bool, error)
	List(ctx context.Context, params ListParams) ([]models.WithdrawalRequest, *pagination.Cursor, error)
	FlagStale(ctx context.Context, cutoff time.Time, note string, limit int) ([]uuid.UUID, error)
}

// Updates carries the optional columns written alongside a status change.
type Updates struct {
	Status             enums.WithdrawalStatus
	ManualRequired     *bool
	ExternalTransferID *string
	ClearTransferID    bool
	Note               *string
	ProcessedAt        *time.Time
}

func (u Updates) columns(now time.Time) map[string]any {
	cols := map[string]any{"updated_at": now}
	if u.Status != "" {
		cols["status"] = u.Status
	}
	if u.ManualRequired != nil {
		cols["manual_required"] = *u.ManualRequired
	}
	if u.ExternalTransferID != nil {
		cols["external_transfer_id"] = *u.ExternalTransferID
	} else if u.ClearTransferID {
		cols["external_transfer_id"] = nil
	}
	if u.Note != nil {
		cols["note"] = *u.Note
	}
	if u.ProcessedAt != nil {
		cols["processed_at"] = *u.ProcessedAt
	}
	return cols
}

// ListParams filters a withdrawal listing. Zero values mean "any".
type ListParams struct {
	PhotographerID *uuid.UUID
	Status         *enums.WithdrawalStatus
	Limit          int
	Cursor         *pagination.Cursor
}

type repository struct {
	repo.Base
}

// NewRepository returns a withdrawals repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.WithTx(tx)}
}

func (r *repository) Create(ctx context.Context, withdrawal *models.WithdrawalRequest) error {
	return r.DB(ctx).Create(withdrawal).Error
}

// FindByID returns nil, nil when the withdrawal does not exist.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	return repo.TakeOrNil[models.WithdrawalRequest](r.DB(ctx).Where("id = ?", id))
}

// Transition applies updates only while the row is still in from.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, from enums.WithdrawalStatus, updates Updates) (bool, error) {
	return repo.Affected(r.DB(ctx).
		Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates.columns(time.Now().UTC())))
}

// Annotate writes non-status columns while the row stays in status.
func (r *repository) Annotate(ctx context.Context, id uuid.UUID, status enums.WithdrawalStatus, updates Updates) (bool, error) {
	updates.Status = ""
	return r.Transition(ctx, id, status, updates)
}

func (r *repository) List(ctx context.Context, params ListParams) ([]models.WithdrawalRequest, *pagination.Cursor, error) {
	query := r.DB(ctx).Model(&models.WithdrawalRequest{})
	if params.PhotographerID != nil {
		query = query.Where("photographer_id = ?", *params.PhotographerID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var rows []models.WithdrawalRequest
	if err := pagination.Keyset(query, params.Cursor, params.Limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, params.Limit, func(w models.WithdrawalRequest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: w.CreatedAt, ID: w.ID}
	})
	return page, next, nil
}

// FlagStale marks PENDING withdrawals older than cutoff for manual handling
// and returns the ids it flagged.
func (r *repository) FlagStale(ctx context.Context, cutoff time.Time, note string, limit int) ([]uuid.UUID, error) {
	var candidates []uuid.UUID
	if err := r.DB(ctx).
		Model(&models.WithdrawalRequest{}).
		Where("status = ? AND manual_required = ? AND created_at < ?", enums.WithdrawalStatusPending, false, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Pluck("id", &candidates).Error; err != nil {
		return nil, err
	}

	manual := true
	flagged := make([]uuid.UUID, 0, len(candidates))
	for _, id := range candidates {
		ok, err := r.Annotate(ctx, id, enums.WithdrawalStatusPending, Updates{ManualRequired: &manual, Note: &note})
		if err != nil {
			return flagged, err
		}
		if ok {
			flagged = append(flagged, id)
		}
	}
	return flagged, nil
}
