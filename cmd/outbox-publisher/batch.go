package main

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/gtclicks/ledger-backend/pkg/db/models"
	"github.com/gtclicks/ledger-backend/pkg/enums"
	"github.com/gtclicks/ledger-backend/pkg/outbox/registry"
)

type disposition string

const (
	dispositionPublished    disposition = "published"
	dispositionRetry        disposition = "retry"
	dispositionDeadLettered disposition = "dead_lettered"
)

// processBatch claims one batch inside a transaction and settles every row
// before committing. It reports whether any row was claimed.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	started := time.Now()
	claimed := 0
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim outbox rows: %w", err)
		}
		claimed = len(events)
		for _, event := range events {
			outcome, err := s.deliver(ctx, tx, event)
			if err != nil {
				return err
			}
			s.metrics.IncEvent(string(event.EventType), string(outcome))
		}
		return nil
	})
	if claimed > 0 {
		s.metrics.ObserveBatch(time.Since(started))
	}
	return claimed > 0, err
}

// deliver publishes one row and records the result on it. Only storage
// errors are returned; publish failures become a retry or a dead letter.
func (s *Service) deliver(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (disposition, error) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	})

	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return s.deadLetter(logCtx, tx, event, enums.OutboxDLQReasonPermanent, err)
	}
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"event_id": resolved.Envelope.EventID,
		"topic":    resolved.Descriptor.Topic,
	})

	pubErr := s.publish(ctx, event, resolved)
	switch {
	case pubErr == nil:
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return "", fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Info(logCtx, "outbox.event_published")
		return dispositionPublished, nil
	case registry.IsPermanent(pubErr):
		return s.deadLetter(logCtx, tx, event, enums.OutboxDLQReasonPermanent, pubErr)
	case event.AttemptCount+1 >= s.maxAttempts:
		return s.deadLetter(logCtx, tx, event, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", pubErr))
	default:
		if err := s.repo.MarkFailedTx(tx, event.ID, pubErr); err != nil {
			return "", fmt.Errorf("mark failure %s: %w", event.ID, err)
		}
		s.logg.Warn(s.logg.WithField(logCtx, "error", pubErr.Error()), "outbox.publish_retry")
		return dispositionRetry, nil
	}
}

// deadLetter copies the row into outbox_dlq and pins its attempt count so it
// is never claimed again.
func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) (disposition, error) {
	entry := event.DeadLetter(reason, cause, time.Now().UTC())
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return "", fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return "", fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"error_reason": reason,
		"error":        cause.Error(),
	}), "outbox.event_dead_lettered")
	return dispositionDeadLettered, nil
}
