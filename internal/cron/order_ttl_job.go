package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gtclicks/ledger-backend/pkg/logger"
)

const (
	defaultPendingOrderTTL = 72 * time.Hour
	orderTTLBatchSize      = 200
)

// OrderTTLJobParams configure the abandoned checkout sweep.
type OrderTTLJobParams struct {
	Logger *logger.Logger
	Orders expiredOrderCanceller
	TTL    time.Duration
}

type expiredOrderCanceller interface {
	CancelExpired(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

// NewOrderTTLJob cancels PENDING orders older than TTL. PAID orders are never
// matched, so a late approval racing the sweep still settles.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	return &orderTTLJob{
		logg:   params.Logger,
		orders: params.Orders,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

type orderTTLJob struct {
	logg   *logger.Logger
	orders expiredOrderCanceller
	ttl    time.Duration
	now    func() time.Time
}

func (j *orderTTLJob) Name() string { return "order-ttl" }

func (j *orderTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	total := 0
	for {
		cancelled, err := j.orders.CancelExpired(ctx, cutoff, orderTTLBatchSize)
		total += len(cancelled)
		if err != nil {
			return fmt.Errorf("cancel expired orders: %w", err)
		}
		if len(cancelled) < orderTTLBatchSize {
			break
		}
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":    cutoff,
		"cancelled": total,
	}), "cron.order_ttl_complete")
	return nil
}
