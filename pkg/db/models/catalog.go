package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Photo is the read projection of a catalog photo used by settlement.
type Photo struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	PhotographerID uuid.UUID  `gorm:"column:photographer_id;type:uuid;not null"`
	CollectionID   *uuid.UUID `gorm:"column:collection_id;type:uuid"`
	Title          string     `gorm:"column:title;not null"`
	SalesCount     int        `gorm:"column:sales_count;not null;default:0"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (p *Photo) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

type Collection struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PhotographerID uuid.UUID `gorm:"column:photographer_id;type:uuid;not null"`
	Title          string    `gorm:"column:title;not null"`
	SalesCount     int       `gorm:"column:sales_count;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (c *Collection) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// Photographer links a user account to its payout identity.
type Photographer struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Username  string    `gorm:"column:username;not null"`
	PixKey    *string   `gorm:"column:pix_key"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (p *Photographer) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// User represents the canonical identity entity.
type User struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email     string    `gorm:"column:email;not null;uniqueIndex"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
