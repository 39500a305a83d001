package settlement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gtclicks/ledger-backend/internal/ledger"
	"github.com/gtclicks/ledger-backend/internal/notifications"
	"github.com/gtclicks/ledger-backend/internal/orders"
	"github.com/gtclicks/ledger-backend/internal/platformconfig"
	"github.com/gtclicks/ledger-backend/pkg/db"
	"github.com/gtclicks/ledger-backend/pkg/db/models"
	"github.com/gtclicks/ledger-backend/pkg/enums"
	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
	"github.com/gtclicks/ledger-backend/pkg/logger"
	"github.com/gtclicks/ledger-backend/pkg/metrics"
	"github.com/gtclicks/ledger-backend/pkg/outbox"
	"github.com/gtclicks/ledger-backend/pkg/outbox/payloads"
)

type Outcome string

const (
	OutcomeSettled          Outcome = "settled"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeCancelled        Outcome = "cancelled"
	OutcomeIgnored          Outcome = "ignored"
)

var hundred = decimal.NewFromInt(100)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type configReader interface {
	GetNumber(ctx context.Context, key string) (decimal.Decimal, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ServiceParams struct {
	TxRunner txRunner
	Orders   orders.Repository
	Ledger   ledger.Repository
	Config   configReader
	Outbox   outboxEmitter
	Notifier notifications.Notifier
	Metrics  *metrics.LedgerMetrics
	Logger   *logger.Logger
	Clock    func() time.Time
}

// Service applies payment outcomes to orders and splits proceeds.
type Service struct {
	tx       txRunner
	orders   orders.Repository
	ledger   ledger.Repository
	config   configReader
	outbox   outboxEmitter
	notifier notifications.Notifier
	metrics  *metrics.LedgerMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// SettleInput identifies an approved payment for an order.
type SettleInput struct {
	OrderID           uuid.UUID
	ExternalPaymentID string
	Provider          enums.PaymentProvider
}

// CancelInput identifies a rejected payment for an order.
type CancelInput struct {
	OrderID           uuid.UUID
	ExternalPaymentID string
	Provider          enums.PaymentProvider
}

type Result struct {
	OrderID    uuid.UUID       `json:"order_id"`
	Outcome    Outcome         `json:"outcome"`
	Credited   decimal.Decimal `json:"credited"`
	Commission decimal.Decimal `json:"commission"`
	Items      int             `json:"items"`
}

func NewService(params ServiceParams) (*Service, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Config == nil {
		return nil, fmt.Errorf("platform config reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = notifications.Nop{}
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		tx:       params.TxRunner,
		orders:   params.Orders,
		ledger:   params.Ledger,
		config:   params.Config,
		outbox:   params.Outbox,
		notifier: notifier,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      clock,
	}, nil
}

// photographerShare accumulates one photographer's part of an order.
type photographerShare struct {
	photographerID uuid.UUID
	userID         uuid.UUID
	credited       decimal.Decimal
	commission     decimal.Decimal
	titles         []string
}

type settlement struct {
	order  *models.Order
	items  []orders.SettlementItem
	shares []*photographerShare
	result Result
}

// Settle marks the order PAID and credits every photographer exactly once.
// Redeliveries after a successful settlement return OutcomeAlreadyProcessed.
func (s *Service) Settle(ctx context.Context, input SettleInput) (*Result, error) {
	if err := validateSettleInput(input); err != nil {
		return nil, err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id":   input.OrderID.String(),
		"provider":   string(input.Provider),
		"payment_id": input.ExternalPaymentID,
	})

	pct, err := s.config.GetNumber(ctx, platformconfig.KeyCommissionPct)
	if err != nil {
		return nil, err
	}
	share := decimal.NewFromInt(1).Sub(pct.Div(hundred))

	var done settlement
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		done = settlement{result: Result{OrderID: input.OrderID, Outcome: OutcomeSettled}}
		return s.settleTx(ctx, tx, input, share, &done)
	})
	if err != nil {
		s.metrics.IncSettlement("error")
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle order")
		}
		s.logg.Error(ctx, "settlement.failed", err)
		return nil, err
	}

	s.metrics.IncSettlement(string(done.result.Outcome))
	if done.result.Outcome != OutcomeSettled {
		s.logg.Info(ctx, "settlement.already_processed")
		return &done.result, nil
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"credited":   done.result.Credited.StringFixed(2),
		"commission": done.result.Commission.StringFixed(2),
		"items":      done.result.Items,
	}), "settlement.order_paid")
	s.notify(ctx, &done)
	return &done.result, nil
}

func (s *Service) settleTx(ctx context.Context, tx *gorm.DB, input SettleInput, share decimal.Decimal, done *settlement) error {
	orderRepo := s.orders.WithTx(tx)
	ledgerRepo := s.ledger.WithTx(tx)
	paidAt := s.now()

	claimed, err := orderRepo.MarkPaid(ctx, orders.MarkPaidInput{
		OrderID:           input.OrderID,
		ExternalPaymentID: input.ExternalPaymentID,
		Provider:          input.Provider,
		PaidAt:            paidAt,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim order")
	}
	if !claimed {
		exists, err := orderRepo.Exists(ctx, input.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order")
		}
		if !exists {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		done.result.Outcome = OutcomeAlreadyProcessed
		return nil
	}

	order, err := orderRepo.FindByID(ctx, input.OrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	items, err := orderRepo.LoadItemsWithPhotoAndPhotographer(ctx, input.OrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
	}
	done.order = order
	done.items = items
	done.result.Items = len(items)

	byPhotographer := map[uuid.UUID]*photographerShare{}
	entries := make([]*models.LedgerEntry, 0, len(items)*2)
	for _, item := range items {
		credit := item.PricePaid.Mul(share).Round(2)
		commission := item.PricePaid.Sub(credit)
		itemID := item.OrderItemID
		orderID := input.OrderID

		acc, ok := byPhotographer[item.PhotographerID]
		if !ok {
			acc = &photographerShare{photographerID: item.PhotographerID, userID: item.PhotographerUserID}
			byPhotographer[item.PhotographerID] = acc
			done.shares = append(done.shares, acc)
		}
		acc.credited = acc.credited.Add(credit)
		acc.commission = acc.commission.Add(commission)
		acc.titles = append(acc.titles, item.PhotoTitle)

		entries = append(entries,
			&models.LedgerEntry{
				PhotographerID: item.PhotographerID,
				Kind:           enums.LedgerEntryKindSale,
				Amount:         credit,
				Description:    fmt.Sprintf("Photo sale: %s", item.PhotoTitle),
				Status:         enums.LedgerEntryStatusProcessed,
				OrderID:        &orderID,
				OrderItemID:    &itemID,
			},
			&models.LedgerEntry{
				PhotographerID: item.PhotographerID,
				Kind:           enums.LedgerEntryKindCommission,
				Amount:         commission,
				Description:    fmt.Sprintf("Platform commission: %s", item.PhotoTitle),
				Status:         enums.LedgerEntryStatusProcessed,
				OrderID:        &orderID,
				OrderItemID:    &itemID,
			},
		)
		done.result.Credited = done.result.Credited.Add(credit)
		done.result.Commission = done.result.Commission.Add(commission)

		if err := orderRepo.IncrementSalesCounts(ctx, item.PhotoID, item.CollectionID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment sales counters")
		}
	}

	for _, acc := range done.shares {
		if err := ledgerRepo.Credit(ctx, acc.photographerID, acc.credited); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit balance")
		}
	}
	if err := ledgerRepo.CreateEntries(ctx, entries...); err != nil {
		if db.IsUniqueViolation(err, "") {
			return integrityViolation(err, "order items already credited")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entries")
	}

	return s.emitEvents(ctx, tx, input, order, paidAt, done)
}

func (s *Service) emitEvents(ctx context.Context, tx *gorm.DB, input SettleInput, order *models.Order, paidAt time.Time, done *settlement) error {
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         outbox.GatewayActor(string(input.Provider)),
		Data: payloads.OrderPaidEvent{
			OrderID:           order.ID,
			BuyerID:           order.BuyerID,
			Total:             order.Total,
			Provider:          input.Provider,
			ExternalPaymentID: input.ExternalPaymentID,
			PaidAt:            paidAt,
		},
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order paid event")
	}
	for _, acc := range done.shares {
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSaleRecorded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         outbox.GatewayActor(string(input.Provider)),
			Data: payloads.SaleRecordedEvent{
				OrderID:        order.ID,
				PhotographerID: acc.photographerID,
				Credited:       acc.credited,
				Commission:     acc.commission,
				ItemCount:      len(acc.titles),
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit sale recorded event")
		}
	}
	return nil
}

func (s *Service) notify(ctx context.Context, done *settlement) {
	for _, acc := range done.shares {
		s.notifier.SaleRecorded(ctx, notifications.SaleNotice{
			PhotographerUserID: acc.userID,
			OrderID:            done.result.OrderID,
			PhotoTitles:        acc.titles,
			Credited:           acc.credited,
		})
	}
	if done.order == nil {
		return
	}
	lines := make([]notifications.OrderLine, 0, len(done.items))
	for _, item := range done.items {
		lines = append(lines, notifications.OrderLine{Title: item.PhotoTitle, Price: item.PricePaid})
	}
	s.notifier.OrderApproved(ctx, notifications.OrderApprovedNotice{
		OrderID: done.order.ID,
		BuyerID: done.order.BuyerID,
		Total:   done.order.Total,
		Items:   lines,
	})
}

// Cancel moves a PENDING order to CANCELLED. Orders already PAID or CANCELLED
// are left untouched and reported as OutcomeIgnored.
func (s *Service) Cancel(ctx context.Context, input CancelInput) (*Result, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id":   input.OrderID.String(),
		"provider":   string(input.Provider),
		"payment_id": input.ExternalPaymentID,
	})

	cancelled, err := s.orders.MarkCancelled(ctx, input.OrderID)
	if err != nil {
		s.metrics.IncSettlement("error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}
	result := &Result{OrderID: input.OrderID, Outcome: OutcomeCancelled}
	if !cancelled {
		exists, err := s.orders.Exists(ctx, input.OrderID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order")
		}
		if !exists {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		result.Outcome = OutcomeIgnored
		s.logg.Info(ctx, "settlement.cancel_ignored")
	} else {
		s.logg.Info(ctx, "settlement.order_cancelled")
	}
	s.metrics.IncSettlement(string(result.Outcome))
	return result, nil
}

func validateSettleInput(input SettleInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if strings.TrimSpace(input.ExternalPaymentID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "external payment id is required")
	}
	if !input.Provider.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment provider")
	}
	return nil
}

func integrityViolation(err error, message string) error {
	return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, message).WithDetails(map[string]any{
		"reason": "integrity_violation",
	})
}

