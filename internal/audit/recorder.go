package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gtclicks/ledger-backend/internal/repo"
	"github.com/gtclicks/ledger-backend/pkg/db/models"
	"github.com/gtclicks/ledger-backend/pkg/enums"
	"github.com/gtclicks/ledger-backend/pkg/logger"
)

const (
	TargetWithdrawal     = "withdrawal"
	TargetPlatformConfig = "platform_config"
)

// Entry describes one privileged action.
type Entry struct {
	AdminID    uuid.UUID
	Action     enums.AdminAction
	TargetType string
	TargetID   string
	Details    map[string]any
}

// Recorder appends admin activity rows.
type Recorder struct {
	repo.Base
	logg *logger.Logger
}

func NewRecorder(db *gorm.DB, logg *logger.Logger) *Recorder {
	return &Recorder{Base: repo.NewBase(db), logg: logg}
}

// Record writes entry using tx when provided, so the audit row commits or
// rolls back with the action it describes.
func (r *Recorder) Record(ctx context.Context, tx *gorm.DB, entry Entry) error {
	if entry.AdminID == uuid.Nil {
		return fmt.Errorf("admin id required")
	}
	if !entry.Action.IsValid() {
		return fmt.Errorf("invalid admin action %q", entry.Action)
	}
	if entry.TargetType == "" || entry.TargetID == "" {
		return fmt.Errorf("audit target required")
	}

	var details json.RawMessage
	if len(entry.Details) > 0 {
		raw, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
		details = raw
	}

	row := &models.AdminActivity{
		AdminID:    entry.AdminID,
		Action:     entry.Action,
		TargetType: entry.TargetType,
		TargetID:   entry.TargetID,
		Details:    details,
	}
	return r.WithTx(tx).DB(ctx).Create(row).Error
}

// RecordBestEffort writes entry outside any transaction and only logs failures.
func (r *Recorder) RecordBestEffort(ctx context.Context, entry Entry) {
	if err := r.Record(ctx, nil, entry); err != nil && r.logg != nil {
		ctx = r.logg.WithFields(ctx, map[string]any{
			"action":    string(entry.Action),
			"target_id": entry.TargetID,
		})
		r.logg.Error(ctx, "audit.record_failed", err)
	}
}

// List returns the most recent activity for a target.
func (r *Recorder) List(ctx context.Context, targetType, targetID string, limit int) ([]models.AdminActivity, error) {
	var rows []models.AdminActivity
	if err := r.DB(ctx).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
