package webhooks

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/gtclicks/ledger-backend/internal/settlement"
	"github.com/gtclicks/ledger-backend/pkg/enums"
	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
	"github.com/gtclicks/ledger-backend/pkg/logger"
	"github.com/gtclicks/ledger-backend/pkg/metrics"
)

const deliveryScope = "payment"

// Outcome describes what a dispatched delivery did.
type Outcome string

const (
	OutcomeIgnored          Outcome = "ignored"
	OutcomeDuplicate        Outcome = "duplicate"
	OutcomePending          Outcome = "pending"
	OutcomeSettled          Outcome = "settled"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeCancelled        Outcome = "cancelled"
	OutcomeUnknownOrder     Outcome = "unknown_order"
)

type settler interface {
	Settle(ctx context.Context, input settlement.SettleInput) (*settlement.Result, error)
	Cancel(ctx context.Context, input settlement.CancelInput) (*settlement.Result, error)
}

type deliveryCache interface {
	Seen(ctx context.Context, scope string, parts ...string) (bool, error)
	Remember(ctx context.Context, scope string, parts ...string) error
}

type DispatcherParams struct {
	Settlement settler
	// Cache is optional; without it every delivery reaches the database.
	Cache   deliveryCache
	Metrics *metrics.LedgerMetrics
	Logger  *logger.Logger
}

// Dispatcher routes normalized payment events into the settlement engine.
type Dispatcher struct {
	settlement settler
	cache      deliveryCache
	metrics    *metrics.LedgerMetrics
	logg       *logger.Logger
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Settlement == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Dispatcher{
		settlement: params.Settlement,
		cache:      params.Cache,
		metrics:    params.Metrics,
		logg:       params.Logger,
	}, nil
}

// Dispatch applies the event. Errors are returned only when the gateway should
// redeliver; every other outcome is acknowledged.
func (d *Dispatcher) Dispatch(ctx context.Context, event *PaymentEvent) (Outcome, error) {
	if event == nil {
		return OutcomeIgnored, nil
	}
	provider := string(event.Provider)
	ctx = d.logg.WithProvider(ctx, provider)
	ctx = d.logg.WithFields(ctx, map[string]any{
		"payment_id":      event.ExternalPaymentID,
		"order_reference": event.OrderReference,
		"payment_status":  string(event.Status),
	})

	outcome, err := d.dispatch(ctx, event)
	if err != nil {
		d.metrics.IncWebhook(provider, "error")
		d.logg.Error(ctx, "webhook.dispatch_failed", err)
		return "", err
	}
	d.metrics.IncWebhook(provider, string(outcome))
	d.logg.Info(d.logg.WithField(ctx, "outcome", string(outcome)), "webhook.dispatched")
	return outcome, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, event *PaymentEvent) (Outcome, error) {
	if event.Status == enums.PaymentEventPending {
		return OutcomePending, nil
	}
	if !event.Status.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}

	orderID, err := uuid.Parse(strings.TrimSpace(event.OrderReference))
	if err != nil {
		d.logg.Warn(ctx, "webhook.order_reference_invalid")
		return OutcomeUnknownOrder, nil
	}

	key := []string{string(event.Provider), event.ExternalPaymentID, string(event.Status)}
	if d.seen(ctx, key) {
		return OutcomeDuplicate, nil
	}

	var outcome Outcome
	switch event.Status {
	case enums.PaymentEventApproved:
		result, err := d.settlement.Settle(ctx, settlement.SettleInput{
			OrderID:           orderID,
			ExternalPaymentID: event.ExternalPaymentID,
			Provider:          event.Provider,
		})
		if err != nil {
			return d.unknownOrderOr(ctx, err)
		}
		outcome = fromSettlement(result.Outcome)
	case enums.PaymentEventRejected:
		result, err := d.settlement.Cancel(ctx, settlement.CancelInput{
			OrderID:           orderID,
			ExternalPaymentID: event.ExternalPaymentID,
			Provider:          event.Provider,
		})
		if err != nil {
			return d.unknownOrderOr(ctx, err)
		}
		outcome = fromSettlement(result.Outcome)
	}

	d.remember(ctx, key)
	return outcome, nil
}

// An order that does not exist will not appear on redelivery either.
func (d *Dispatcher) unknownOrderOr(ctx context.Context, err error) (Outcome, error) {
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		d.logg.Warn(ctx, "webhook.order_not_found")
		return OutcomeUnknownOrder, nil
	}
	return "", err
}

func (d *Dispatcher) seen(ctx context.Context, key []string) bool {
	if d.cache == nil || strings.TrimSpace(key[1]) == "" {
		return false
	}
	seen, err := d.cache.Seen(ctx, deliveryScope, key...)
	if err != nil {
		d.logg.Warn(d.logg.WithField(ctx, "error", err.Error()), "webhook.delivery_cache_unavailable")
		return false
	}
	return seen
}

func (d *Dispatcher) remember(ctx context.Context, key []string) {
	if d.cache == nil || strings.TrimSpace(key[1]) == "" {
		return
	}
	if err := d.cache.Remember(ctx, deliveryScope, key...); err != nil {
		d.logg.Warn(d.logg.WithField(ctx, "error", err.Error()), "webhook.delivery_cache_unavailable")
	}
}

func fromSettlement(outcome settlement.Outcome) Outcome {
	switch outcome {
	case settlement.OutcomeSettled:
		return OutcomeSettled
	case settlement.OutcomeAlreadyProcessed:
		return OutcomeAlreadyProcessed
	case settlement.OutcomeCancelled:
		return OutcomeCancelled
	default:
		return OutcomeIgnored
	}
}
