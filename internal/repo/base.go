// Package repo holds the pieces every ledger repository embeds: a context
// bound gorm handle that can be rebound to a transaction, and the two result
// shapes the services rely on (optional row, conditional write).
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the handle scoped to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// WithTx rebinds to tx. A nil tx keeps the current handle, which lets
// services pass an optional transaction straight through.
func (b Base) WithTx(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// TakeOrNil runs query.Take into a fresh T. A missing row is (nil, nil).
func TakeOrNil[T any](query *gorm.DB) (*T, error) {
	var out T
	err := query.Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Affected runs a conditional write and reports whether any row matched.
// Guarded transitions use it to detect a lost race without a second read.
func Affected(result *gorm.DB) (bool, error) {
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
