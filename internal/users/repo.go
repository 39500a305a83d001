package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gtclicks/ledger-backend/internal/repo"
	"github.com/gtclicks/ledger-backend/pkg/db/models"
)

// Repository exposes user and photographer lookups.
type Repository struct {
	repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx rebinds the repository to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

// FindByID loads a user by their UUID. Missing rows return nil, nil.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return repo.TakeOrNil[models.User](r.DB(ctx).Where("id = ?", id))
}

// FindPhotographer loads a photographer profile by its id.
func (r *Repository) FindPhotographer(ctx context.Context, id uuid.UUID) (*models.Photographer, error) {
	return repo.TakeOrNil[models.Photographer](r.DB(ctx).Where("id = ?", id))
}

// FindPhotographerByUserID resolves the photographer profile owned by a user.
func (r *Repository) FindPhotographerByUserID(ctx context.Context, userID uuid.UUID) (*models.Photographer, error) {
	return repo.TakeOrNil[models.Photographer](r.DB(ctx).Where("user_id = ?", userID))
}
