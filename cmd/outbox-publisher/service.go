package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gtclicks/ledger-backend/pkg/config"
	"github.com/gtclicks/ledger-backend/pkg/db/models"
	"github.com/gtclicks/ledger-backend/pkg/logger"
	"github.com/gtclicks/ledger-backend/pkg/metrics"
	"github.com/gtclicks/ledger-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPoll        = 500 * time.Millisecond
	defaultMaxAttempts = 10
	publishTimeout     = 15 * time.Second
	maxIdleBackoff     = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisherFactory func(topic string) publisher

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	DLQRepository    dlqRepository
	Metrics          *metrics.OutboxMetrics
	PublisherFactory publisherFactory
}

// Service drains outbox_events into the ledger Pub/Sub topic. Rows are
// claimed with SKIP LOCKED, so several publishers can share the table.
type Service struct {
	logg             *logger.Logger
	db               dbClient
	pubsub           pubSubClient
	repo             outboxRepository
	registry         registryResolver
	dlq              dlqRepository
	metrics          *metrics.OutboxMetrics
	publisherFactory publisherFactory
	batchSize        int
	maxAttempts      int
	pollInterval     time.Duration
}

func (p ServiceParams) validate() error {
	checks := []struct {
		name   string
		absent bool
	}{
		{"config", p.Config == nil},
		{"logger", p.Logger == nil},
		{"database", p.DB == nil},
		{"pubsub", p.PubSub == nil},
		{"outbox store", p.Repository == nil},
		{"event registry", p.Registry == nil},
		{"dlq store", p.DLQRepository == nil},
	}
	var errs []error
	for _, c := range checks {
		if c.absent {
			errs = append(errs, fmt.Errorf("%s is required", c.name))
		}
	}
	return errors.Join(errs...)
}

func NewService(params ServiceParams) (*Service, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	factory := params.PublisherFactory
	if factory == nil {
		factory = func(topic string) publisher {
			return wrapPublisher(params.PubSub.Publisher(topic))
		}
	}

	cfg := params.Config.Outbox
	poll := defaultPoll
	if cfg.PollIntervalMS > 0 {
		poll = time.Duration(cfg.PollIntervalMS) * time.Millisecond
	}
	return &Service{
		logg:             params.Logger,
		db:               params.DB,
		pubsub:           params.PubSub,
		repo:             params.Repository,
		registry:         params.Registry,
		dlq:              params.DLQRepository,
		metrics:          params.Metrics,
		publisherFactory: factory,
		batchSize:        cmp.Or(max(cfg.BatchSize, 0), defaultBatchSize),
		maxAttempts:      cmp.Or(max(cfg.MaxAttempts, 0), defaultMaxAttempts),
		pollInterval:     poll,
	}, nil
}

// Run drains the outbox until ctx is canceled. Both backends are pinged
// once up front so a misconfigured deploy fails fast.
func (s *Service) Run(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if err := s.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping: %w", err)
	}

	idle := pollBackoff{base: s.pollInterval, ceiling: maxIdleBackoff}
	for {
		processed, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "outbox.batch_failed", err)
		}
		if processed && err == nil {
			idle.reset()
			continue
		}
		if err := sleepWithJitter(ctx, idle.next(err != nil)); err != nil {
			s.logg.Info(ctx, "outbox.publisher_stopped")
			return err
		}
	}
}

// pollBackoff doubles the wait after each failed batch and drops back to
// the poll interval once a batch goes through.
type pollBackoff struct {
	base, ceiling, current time.Duration
}

func (b *pollBackoff) reset() { b.current = 0 }

func (b *pollBackoff) next(failed bool) time.Duration {
	if !failed {
		b.current = 0
		return b.base
	}
	if b.current == 0 {
		b.current = b.base
	}
	b.current = min(b.current*2, b.ceiling)
	return b.current
}

func sleepWithJitter(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d + rand.N(jitterWindow))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
