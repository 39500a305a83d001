package cron

import (
	"context"
	"errors"
	"time"

	"github.com/gtclicks/ledger-backend/pkg/logger"
)

const defaultRetention = 30 * 24 * time.Hour

// PurgeFunc deletes rows older than cutoff and returns how many went.
type PurgeFunc func(ctx context.Context, cutoff time.Time) (int64, error)

type RetentionJobParams struct {
	Name      string
	Logger    *logger.Logger
	Purge     PurgeFunc
	Retention time.Duration
}

// NewRetentionJob builds a job that trims one table to a rolling window.
// What counts as old is up to Purge: published outbox rows, read
// notifications.
func NewRetentionJob(params RetentionJobParams) (Job, error) {
	switch {
	case params.Name == "":
		return nil, errors.New("retention job name required")
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Purge == nil:
		return nil, errors.New("purge func required")
	}
	if params.Retention <= 0 {
		params.Retention = defaultRetention
	}
	return &retentionJob{params: params, now: time.Now}, nil
}

type retentionJob struct {
	params RetentionJobParams
	now    func() time.Time
}

func (j *retentionJob) Name() string { return j.params.Name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.params.Retention)
	deleted, err := j.params.Purge(ctx, cutoff)
	if err != nil {
		return err
	}
	logg := j.params.Logger
	logg.Info(logg.WithFields(ctx, map[string]any{
		"job":          j.params.Name,
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "cron.retention_complete")
	return nil
}
