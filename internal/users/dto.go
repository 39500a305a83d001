package users

import (
	"github.com/google/uuid"

	"github.com/gtclicks/ledger-backend/pkg/db/models"
)

// PhotographerDTO is the transport shape of a photographer payout profile.
// The PIX key is masked.
type PhotographerDTO struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	HasPixKey bool      `json:"has_pix_key"`
	PixKey    string    `json:"pix_key,omitempty"`
}

func FromPhotographer(p *models.Photographer) *PhotographerDTO {
	if p == nil {
		return nil
	}
	dto := &PhotographerDTO{
		ID:       p.ID,
		UserID:   p.UserID,
		Username: p.Username,
	}
	if p.PixKey != nil && *p.PixKey != "" {
		dto.HasPixKey = true
		dto.PixKey = MaskPixKey(*p.PixKey)
	}
	return dto
}

// MaskPixKey keeps the last four characters visible.
func MaskPixKey(key string) string {
	runes := []rune(key)
	if len(runes) <= 4 {
		return "****"
	}
	masked := make([]rune, len(runes))
	for i := range runes {
		if i < len(runes)-4 {
			masked[i] = '*'
		} else {
			masked[i] = runes[i]
		}
	}
	return string(masked)
}
