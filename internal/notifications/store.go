package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gtclicks/ledger-backend/internal/repo"
	"github.com/gtclicks/ledger-backend/pkg/db/models"
	"github.com/gtclicks/ledger-backend/pkg/pagination"
)

// Store persists in-app notices. Every read is scoped to the owning user.
type Store struct {
	repo.Base
}

func NewStore(db *gorm.DB) *Store {
	return &Store{Base: repo.NewBase(db)}
}

func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{Base: s.Base.WithTx(tx)}
}

func (s *Store) Insert(ctx context.Context, n *models.Notification) error {
	return s.DB(ctx).Create(n).Error
}

func (s *Store) owned(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return s.DB(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
}

// Page returns up to limit notices newest first, plus the cursor of the next
// page when there is one.
func (s *Store) Page(ctx context.Context, userID uuid.UUID, unreadOnly bool, cursor *pagination.Cursor, limit int) ([]models.Notification, *pagination.Cursor, error) {
	query := s.owned(ctx, userID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}
	var rows []models.Notification
	if err := pagination.Keyset(query, cursor, limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return page, next, nil
}

func (s *Store) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := s.owned(ctx, userID).Where("read_at IS NULL").Count(&n).Error
	return n, err
}

// Find returns nil when the notice does not exist or belongs to someone else.
func (s *Store) Find(ctx context.Context, userID, id uuid.UUID) (*models.Notification, error) {
	return repo.TakeOrNil[models.Notification](s.owned(ctx, userID).Where("id = ?", id))
}

// MarkRead stamps read_at on the given notices that are still unread.
// With no ids it stamps every unread notice of the user.
func (s *Store) MarkRead(ctx context.Context, userID uuid.UUID, at time.Time, ids ...uuid.UUID) (int64, error) {
	query := s.owned(ctx, userID).Where("read_at IS NULL")
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}
	result := query.UpdateColumn("read_at", at)
	return result.RowsAffected, result.Error
}

// DeleteReadBefore removes notices read before cutoff. Unread rows stay.
func (s *Store) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.DB(ctx).
		Where("read_at IS NOT NULL AND read_at < ?", cutoff).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}
