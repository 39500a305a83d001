package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gtclicks/ledger-backend/pkg/logger"
)

const (
	defaultStaleWithdrawalAfter = 24 * time.Hour
	staleWithdrawalBatchSize    = 100
	staleWithdrawalNote         = "no transfer confirmation received, manual review required"
)

type StaleWithdrawalJobParams struct {
	Logger      *logger.Logger
	Withdrawals staleWithdrawalFlagger
	After       time.Duration
}

type staleWithdrawalFlagger interface {
	FlagStale(ctx context.Context, cutoff time.Time, note string, limit int) ([]uuid.UUID, error)
}

// NewStaleWithdrawalJob flags PENDING withdrawals that never reached a
// terminal state as manual_required. Funds stay blocked; only an admin action
// resolves them.
func NewStaleWithdrawalJob(params StaleWithdrawalJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Withdrawals == nil {
		return nil, fmt.Errorf("withdrawals repository required")
	}
	after := params.After
	if after <= 0 {
		after = defaultStaleWithdrawalAfter
	}
	return &staleWithdrawalJob{
		logg:        params.Logger,
		withdrawals: params.Withdrawals,
		after:       after,
		now:         time.Now,
	}, nil
}

type staleWithdrawalJob struct {
	logg        *logger.Logger
	withdrawals staleWithdrawalFlagger
	after       time.Duration
	now         func() time.Time
}

func (j *staleWithdrawalJob) Name() string { return "stale-withdrawals" }

func (j *staleWithdrawalJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.after)
	var flagged []uuid.UUID
	for {
		batch, err := j.withdrawals.FlagStale(ctx, cutoff, staleWithdrawalNote, staleWithdrawalBatchSize)
		flagged = append(flagged, batch...)
		if err != nil {
			return fmt.Errorf("flag stale withdrawals: %w", err)
		}
		if len(batch) < staleWithdrawalBatchSize {
			break
		}
	}
	for _, id := range flagged {
		j.logg.Warn(j.logg.WithWithdrawalID(ctx, id.String()), "cron.withdrawal_flagged_manual")
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"flagged": len(flagged),
	}), "cron.stale_withdrawals_complete")
	return nil
}
