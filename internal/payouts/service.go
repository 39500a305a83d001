package payouts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gtclicks/ledger-backend/internal/audit"
	"github.com/gtclicks/ledger-backend/internal/ledger"
	"github.com/gtclicks/ledger-backend/internal/notifications"
	"github.com/gtclicks/ledger-backend/internal/platformconfig"
	"github.com/gtclicks/ledger-backend/internal/withdrawals"
	"github.com/gtclicks/ledger-backend/pkg/db/models"
	"github.com/gtclicks/ledger-backend/pkg/enums"
	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
	"github.com/gtclicks/ledger-backend/pkg/logger"
	"github.com/gtclicks/ledger-backend/pkg/metrics"
	"github.com/gtclicks/ledger-backend/pkg/outbox"
	"github.com/gtclicks/ledger-backend/pkg/outbox/payloads"
	"github.com/gtclicks/ledger-backend/pkg/pagination"
)

const (
	noteAwaitingAuthorization = "awaiting transfer authorization"
	noteTransferCompleted     = "transfer completed"
	noteTransferAuthorized    = "transfer authorized"
	noteNotConfigured         = "transfer gateway not configured, manual transfer required"
	noteRetryRequested        = "retry requested"
	noteCancelledByAdmin      = "cancelled by admin"
	noteManualConfirmed       = "manual transfer confirmed"
	withdrawalEntryText       = "Withdrawal via PIX"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type configReader interface {
	GetNumber(ctx context.Context, key string) (decimal.Decimal, error)
}

type photographerLookup interface {
	FindPhotographer(ctx context.Context, id uuid.UUID) (*models.Photographer, error)
}

type auditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) error
	RecordBestEffort(ctx context.Context, entry audit.Entry)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ServiceParams struct {
	TxRunner      txRunner
	Withdrawals   withdrawals.Repository
	Ledger        ledger.Repository
	Photographers photographerLookup
	Config        configReader
	// Gateway may be nil; withdrawals then wait for manual confirmation.
	Gateway  TransferGateway
	Outbox   outboxEmitter
	Audit    auditRecorder
	Notifier notifications.Notifier
	Metrics  *metrics.LedgerMetrics
	Logger   *logger.Logger
	Clock    func() time.Time
}

// Service drives withdrawal requests through reservation, transfer and
// resolution. Balance changes and status transitions always commit together.
type Service struct {
	tx            txRunner
	withdrawals   withdrawals.Repository
	ledger        ledger.Repository
	photographers photographerLookup
	config        configReader
	gateway       TransferGateway
	outbox        outboxEmitter
	audit         auditRecorder
	notifier      notifications.Notifier
	metrics       *metrics.LedgerMetrics
	logg          *logger.Logger
	now           func() time.Time
}

// RequestInput asks to withdraw Amount from a photographer's available funds.
type RequestInput struct {
	PhotographerID uuid.UUID
	Amount         decimal.Decimal
}

// AdminInput identifies an admin action on a withdrawal.
type AdminInput struct {
	WithdrawalID uuid.UUID
	AdminID      uuid.UUID
	Note         string
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.TxRunner == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Withdrawals == nil:
		return nil, fmt.Errorf("withdrawals repository required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("ledger repository required")
	case params.Photographers == nil:
		return nil, fmt.Errorf("photographer lookup required")
	case params.Config == nil:
		return nil, fmt.Errorf("platform config reader required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Audit == nil:
		return nil, fmt.Errorf("audit recorder required")
	case params.Logger == nil:
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
		tx:            params.TxRunner,
		withdrawals:   params.Withdrawals,
		ledger:        params.Ledger,
		photographers: params.Photographers,
		config:        params.Config,
		gateway:       params.Gateway,
		outbox:        params.Outbox,
		audit:         params.Audit,
		notifier:      notifier,
		metrics:       params.Metrics,
		logg:          params.Logger,
		now:           clock,
	}, nil
}

// Request reserves the amount and immediately attempts the transfer.
func (s *Service) Request(ctx context.Context, input RequestInput) (*Result, error) {
	amount := input.Amount
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !amount.Equal(amount.Round(2)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must have at most two decimal places")
	}

	photographer, err := s.photographers.FindPhotographer(ctx, input.PhotographerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load photographer")
	}
	if photographer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "photographer not found")
	}
	if photographer.PixKey == nil || strings.TrimSpace(*photographer.PixKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pix key not registered")
	}

	minimum, err := s.config.GetNumber(ctx, platformconfig.KeyMinWithdrawal)
	if err != nil {
		return nil, err
	}
	if amount.LessThan(minimum) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount below minimum withdrawal").
			WithDetails(map[string]any{"min_withdrawal": minimum.StringFixed(2)})
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"photographer_id": input.PhotographerID.String(),
		"amount":          amount.StringFixed(2),
	})

	var created models.WithdrawalRequest
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ledgerRepo := s.ledger.WithTx(tx)
		balance, err := ledgerRepo.FindBalance(ctx, input.PhotographerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load balance")
		}
		if balance == nil {
			return stateConflict(ReasonInsufficientFunds, "insufficient funds")
		}
		if err := ledgerRepo.Reserve(ctx, input.PhotographerID, amount); err != nil {
			return balanceError(err)
		}

		created = models.WithdrawalRequest{
			PhotographerID: input.PhotographerID,
			Amount:         amount,
			PixKey:         strings.TrimSpace(*photographer.PixKey),
			Status:         enums.WithdrawalStatusPending,
		}
		if err := s.withdrawals.WithTx(tx).Create(ctx, &created); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create withdrawal")
		}
		return ledgerRepo.CreateEntries(ctx, &models.LedgerEntry{
			PhotographerID: input.PhotographerID,
			Kind:           enums.LedgerEntryKindWithdrawal,
			Amount:         amount.Neg(),
			Description:    withdrawalEntryText,
			Status:         enums.LedgerEntryStatusPending,
			WithdrawalID:   &created.ID,
		})
	})
	if err != nil {
		s.metrics.IncPayout("request", reasonOf(err))
		return nil, s.wrapTxError(ctx, "payouts.request_failed", err)
	}

	ctx = s.logg.WithWithdrawalID(ctx, created.ID.String())
	s.logg.Info(ctx, "payouts.withdrawal_requested")
	s.metrics.IncPayout("request", "reserved")
	return s.process(ctx, &created, "request")
}

// Process attempts the transfer for a PENDING withdrawal.
func (s *Service) Process(ctx context.Context, withdrawalID uuid.UUID) (*Result, error) {
	w, err := s.load(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	return s.process(s.logg.WithWithdrawalID(ctx, w.ID.String()), w, "process")
}

// Approve is the admin entry point for Process.
func (s *Service) Approve(ctx context.Context, input AdminInput) (*Result, error) {
	result, err := s.Process(ctx, input.WithdrawalID)
	if err != nil {
		return nil, err
	}
	s.recordAdmin(ctx, input, enums.AdminActionPayoutProcessed, result)
	return result, nil
}

func (s *Service) process(ctx context.Context, w *models.WithdrawalRequest, action string) (*Result, error) {
	if w.Status != enums.WithdrawalStatusPending {
		return nil, alreadyProcessed(w)
	}
	if w.ExternalTransferID != nil && *w.ExternalTransferID != "" {
		return &Result{Withdrawal: FromModel(w), Outcome: OutcomeAwaitingAuthorization}, nil
	}
	return s.transfer(ctx, w, action, s.holdForManual)
}

type failureHandler func(ctx context.Context, w *models.WithdrawalRequest, reason, note string) (*Result, error)

// transfer calls the gateway for a PENDING withdrawal whose funds are already
// reserved. onFailure decides what a failed or impossible transfer means.
func (s *Service) transfer(ctx context.Context, w *models.WithdrawalRequest, action string, onFailure failureHandler) (*Result, error) {
	if s.gateway == nil {
		s.metrics.IncPayout(action, ReasonNotConfigured)
		return onFailure(ctx, w, ReasonNotConfigured, noteNotConfigured)
	}

	sent, err := s.gateway.SendPix(ctx, TransferInput{
		WithdrawalID: w.ID,
		Amount:       w.Amount,
		PixKey:       w.PixKey,
	})
	if err != nil {
		reason := ReasonGatewayUnavailable
		if pkgerrors.IsCode(err, pkgerrors.CodeGatewayRejected) {
			reason = ReasonGatewayRejected
		}
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"reason": reason,
			"error":  err.Error(),
		}), "payouts.transfer_failed")
		s.metrics.IncPayout(action, reason)
		return onFailure(ctx, w, reason, "transfer failed: "+errorMessage(err))
	}

	if sent.State == TransferAwaiting {
		note := noteAwaitingAuthorization
		ok, err := s.withdrawals.Annotate(ctx, w.ID, enums.WithdrawalStatusPending, withdrawals.Updates{
			ExternalTransferID: &sent.ID,
			Note:               &note,
		})
		if err != nil {
			s.logg.Error(s.logg.WithField(ctx, "transfer_id", sent.ID), "payouts.transfer_record_failed", err)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record transfer id")
		}
		if !ok {
			return s.current(ctx, w.ID, OutcomeAlreadyProcessed)
		}
		s.logg.Info(s.logg.WithField(ctx, "transfer_id", sent.ID), "payouts.awaiting_authorization")
		s.metrics.IncPayout(action, string(OutcomeAwaitingAuthorization))
		return s.current(ctx, w.ID, OutcomeAwaitingAuthorization)
	}

	result, err := s.complete(ctx, w, sent.ID, noteTransferCompleted)
	if err != nil && isAlreadyProcessed(err) {
		s.logg.Warn(s.logg.WithField(ctx, "transfer_id", sent.ID), "payouts.transfer_completed_after_resolution")
		return s.current(ctx, w.ID, OutcomeAlreadyProcessed)
	}
	if err == nil {
		s.metrics.IncPayout(action, string(OutcomeProcessed))
	}
	return result, err
}

// holdForManual leaves the withdrawal PENDING with its funds reserved and
// flags it for a human.
func (s *Service) holdForManual(ctx context.Context, w *models.WithdrawalRequest, reason, note string) (*Result, error) {
	manual := true
	ok, err := s.withdrawals.Annotate(ctx, w.ID, enums.WithdrawalStatusPending, withdrawals.Updates{
		ManualRequired: &manual,
		Note:           &note,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag manual withdrawal")
	}
	if !ok {
		return s.current(ctx, w.ID, OutcomeAlreadyProcessed)
	}
	s.logg.Info(s.logg.WithField(ctx, "reason", reason), "payouts.manual_required")
	result, err := s.current(ctx, w.ID, OutcomeManualRequired)
	if err != nil {
		return nil, err
	}
	result.Reason = reason
	return result, nil
}

// Retry re-reserves a FAILED withdrawal and sends the transfer again. A
// definite rejection releases the new reservation and returns to FAILED; an
// unknown outcome keeps the funds blocked for manual review.
func (s *Service) Retry(ctx context.Context, input AdminInput) (*Result, error) {
	w, err := s.load(ctx, input.WithdrawalID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithWithdrawalID(ctx, w.ID.String())
	if w.Status != enums.WithdrawalStatusFailed {
		return nil, alreadyProcessed(w)
	}

	manual := false
	note := noteRetryRequested
	reopened, err := s.resolve(ctx, w, resolution{
		from:      enums.WithdrawalStatusFailed,
		updates:   withdrawals.Updates{Status: enums.WithdrawalStatusPending, ManualRequired: &manual, ClearTransferID: true, Note: &note},
		entryFrom: enums.LedgerEntryStatusFailed,
		entryTo:   enums.LedgerEntryStatusPending,
		balance:   ledger.Repository.Reserve,
	})
	if err != nil {
		s.metrics.IncPayout("retry", reasonOf(err))
		return nil, err
	}

	result, err := s.transfer(ctx, reopened, "retry", s.failRetry)
	if err != nil {
		return nil, err
	}
	s.recordAdmin(ctx, input, enums.AdminActionPayoutRetried, result)
	return result, nil
}

func (s *Service) failRetry(ctx context.Context, w *models.WithdrawalRequest, reason, note string) (*Result, error) {
	if reason == ReasonGatewayUnavailable {
		// The transfer may have gone out.
		return s.holdForManual(ctx, w, reason, note)
	}
	failed, err := s.resolve(ctx, w, resolution{
		from:      enums.WithdrawalStatusPending,
		updates:   withdrawals.Updates{Status: enums.WithdrawalStatusFailed, Note: &note},
		entryFrom: enums.LedgerEntryStatusPending,
		entryTo:   enums.LedgerEntryStatusFailed,
		balance:   ledger.Repository.Release,
	})
	if err != nil {
		if isAlreadyProcessed(err) {
			return s.current(ctx, w.ID, OutcomeAlreadyProcessed)
		}
		return nil, err
	}
	return &Result{Withdrawal: FromModel(failed), Outcome: OutcomeFailed, Reason: reason}, nil
}

// Cancel returns a PENDING withdrawal's reservation to available.
func (s *Service) Cancel(ctx context.Context, input AdminInput) (*Result, error) {
	w, err := s.load(ctx, input.WithdrawalID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithWithdrawalID(ctx, w.ID.String())

	note := noteOr(input.Note, noteCancelledByAdmin)
	cancelled, err := s.resolve(ctx, w, resolution{
		from:      enums.WithdrawalStatusPending,
		updates:   withdrawals.Updates{Status: enums.WithdrawalStatusCancelled, Note: &note},
		entryFrom: enums.LedgerEntryStatusPending,
		entryTo:   enums.LedgerEntryStatusFailed,
		balance:   ledger.Repository.Release,
		event:     enums.EventWithdrawalCancelled,
		actor:     outbox.AdminActor(input.AdminID),
	})
	if err != nil {
		s.metrics.IncPayout("cancel", reasonOf(err))
		return nil, err
	}

	result := &Result{Withdrawal: FromModel(cancelled), Outcome: OutcomeCancelled}
	s.metrics.IncPayout("cancel", string(OutcomeCancelled))
	s.logg.Info(ctx, "payouts.withdrawal_cancelled")
	s.recordAdmin(ctx, input, enums.AdminActionPayoutCancelled, result)
	s.notify(ctx, cancelled)
	return result, nil
}

// ConfirmManual records an out-of-band transfer. The audit row commits with
// the transition.
func (s *Service) ConfirmManual(ctx context.Context, input AdminInput) (*Result, error) {
	if input.AdminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin id is required")
	}
	w, err := s.load(ctx, input.WithdrawalID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithWithdrawalID(ctx, w.ID.String())

	note := noteOr(input.Note, noteManualConfirmed)
	manual := false
	processedAt := s.now()
	confirmed, err := s.resolve(ctx, w, resolution{
		from: enums.WithdrawalStatusPending,
		updates: withdrawals.Updates{
			Status:         enums.WithdrawalStatusProcessed,
			ManualRequired: &manual,
			Note:           &note,
			ProcessedAt:    &processedAt,
		},
		entryFrom: enums.LedgerEntryStatusPending,
		entryTo:   enums.LedgerEntryStatusProcessed,
		balance:   ledger.Repository.ConsumeBlocked,
		event:     enums.EventWithdrawalProcessed,
		audit: &audit.Entry{
			AdminID:    input.AdminID,
			Action:     enums.AdminActionPayoutManualConfirmed,
			TargetType: audit.TargetWithdrawal,
			TargetID:   w.ID.String(),
			Details: map[string]any{
				"amount": w.Amount.StringFixed(2),
				"note":   note,
			},
		},
	})
	if err != nil {
		s.metrics.IncPayout("confirm_manual", reasonOf(err))
		return nil, err
	}

	s.metrics.IncPayout("confirm_manual", string(OutcomeProcessed))
	s.logg.Info(ctx, "payouts.manual_confirmed")
	s.notify(ctx, confirmed)
	return &Result{Withdrawal: FromModel(confirmed), Outcome: OutcomeProcessed}, nil
}

// RevertPending fails a PENDING withdrawal and returns its reservation.
func (s *Service) RevertPending(ctx context.Context, withdrawalID uuid.UUID, reason string) (*Result, error) {
	w, err := s.load(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithWithdrawalID(ctx, w.ID.String())

	note := noteOr(reason, "transfer refused")
	failed, err := s.resolve(ctx, w, resolution{
		from:      enums.WithdrawalStatusPending,
		updates:   withdrawals.Updates{Status: enums.WithdrawalStatusFailed, Note: &note},
		entryFrom: enums.LedgerEntryStatusPending,
		entryTo:   enums.LedgerEntryStatusFailed,
		balance:   ledger.Repository.Release,
		event:     enums.EventWithdrawalRejected,
	})
	if err != nil {
		s.metrics.IncPayout("revert", reasonOf(err))
		return nil, err
	}

	s.metrics.IncPayout("revert", string(OutcomeFailed))
	s.logg.Info(s.logg.WithField(ctx, "reason", note), "payouts.withdrawal_reverted")
	s.notify(ctx, failed)
	return &Result{Withdrawal: FromModel(failed), Outcome: OutcomeFailed}, nil
}

// CompleteAuthorized marks a PENDING withdrawal PROCESSED once the gateway
// confirmed the transfer.
func (s *Service) CompleteAuthorized(ctx context.Context, withdrawalID uuid.UUID, transferID string) (*Result, error) {
	w, err := s.load(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithWithdrawalID(ctx, w.ID.String())
	result, err := s.complete(ctx, w, transferID, noteTransferAuthorized)
	if err != nil {
		s.metrics.IncPayout("authorize", reasonOf(err))
		return nil, err
	}
	s.metrics.IncPayout("authorize", string(OutcomeProcessed))
	return result, nil
}

func (s *Service) complete(ctx context.Context, w *models.WithdrawalRequest, transferID, note string) (*Result, error) {
	manual := false
	processedAt := s.now()
	updates := withdrawals.Updates{
		Status:         enums.WithdrawalStatusProcessed,
		ManualRequired: &manual,
		Note:           &note,
		ProcessedAt:    &processedAt,
	}
	if transferID != "" {
		updates.ExternalTransferID = &transferID
	}
	processed, err := s.resolve(ctx, w, resolution{
		from:      enums.WithdrawalStatusPending,
		updates:   updates,
		entryFrom: enums.LedgerEntryStatusPending,
		entryTo:   enums.LedgerEntryStatusProcessed,
		balance:   ledger.Repository.ConsumeBlocked,
		event:     enums.EventWithdrawalProcessed,
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(ctx, "payouts.withdrawal_processed")
	s.notify(ctx, processed)
	return &Result{Withdrawal: FromModel(processed), Outcome: OutcomeProcessed}, nil
}

type balanceMove func(repo ledger.Repository, ctx context.Context, photographerID uuid.UUID, amount decimal.Decimal) error

type resolution struct {
	from      enums.WithdrawalStatus
	updates   withdrawals.Updates
	entryFrom enums.LedgerEntryStatus
	entryTo   enums.LedgerEntryStatus
	balance   balanceMove
	event     enums.OutboxEventType
	actor     *outbox.Actor
	audit     *audit.Entry
}

// resolve applies one withdrawal transition with its ledger entry status,
// balance movement, outbox event and optional audit row in a single
// transaction, then reloads the row.
func (s *Service) resolve(ctx context.Context, w *models.WithdrawalRequest, res resolution) (*models.WithdrawalRequest, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.withdrawals.WithTx(tx).Transition(ctx, w.ID, res.from, res.updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition withdrawal")
		}
		if !ok {
			return alreadyProcessed(w)
		}

		ledgerRepo := s.ledger.WithTx(tx)
		moved, err := ledgerRepo.SetWithdrawalEntryStatus(ctx, w.ID, res.entryFrom, res.entryTo)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update withdrawal entry")
		}
		if !moved {
			return stateConflict(ReasonIntegrity, "withdrawal ledger entry out of sync")
		}
		if res.balance != nil {
			if err := res.balance(ledgerRepo, ctx, w.PhotographerID, w.Amount); err != nil {
				return balanceError(err)
			}
		}

		if res.event != "" {
			note := ""
			if res.updates.Note != nil {
				note = *res.updates.Note
			}
			actor := res.actor
			if actor == nil && res.audit != nil {
				actor = outbox.AdminActor(res.audit.AdminID)
			}
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     res.event,
				AggregateType: enums.AggregateWithdrawal,
				AggregateID:   w.ID,
				Actor:         actor,
				Data: payloads.WithdrawalResolvedEvent{
					WithdrawalID:   w.ID,
					PhotographerID: w.PhotographerID,
					Amount:         w.Amount,
					Status:         res.updates.Status,
					Note:           note,
				},
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit withdrawal event")
			}
		}

		if res.audit != nil {
			if err := s.audit.Record(ctx, tx, *res.audit); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record audit")
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.wrapTxError(ctx, "payouts.transition_failed", err)
	}
	return s.load(ctx, w.ID)
}

// ListForPhotographer pages through one photographer's withdrawals.
func (s *Service) ListForPhotographer(ctx context.Context, photographerID uuid.UUID, params pagination.Params) (*ListResult, error) {
	return s.list(ctx, withdrawals.ListParams{PhotographerID: &photographerID}, params)
}

// ListAll pages through every withdrawal, optionally filtered by status.
func (s *Service) ListAll(ctx context.Context, status *enums.WithdrawalStatus, params pagination.Params) (*ListResult, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid withdrawal status")
	}
	return s.list(ctx, withdrawals.ListParams{Status: status}, params)
}

func (s *Service) list(ctx context.Context, filter withdrawals.ListParams, params pagination.Params) (*ListResult, error) {
	limit, cursor, err := params.Resolve()
	if err != nil {
		return nil, err
	}
	filter.Limit = limit
	filter.Cursor = cursor

	rows, next, err := s.withdrawals.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list withdrawals")
	}
	result := &ListResult{Items: make([]WithdrawalDTO, 0, len(rows))}
	for i := range rows {
		result.Items = append(result.Items, *FromModel(&rows[i]))
	}
	result.NextCursor = pagination.EncodeNext(next)
	return result, nil
}

// GatewayBalance reads the platform's transfer account balance.
func (s *Service) GatewayBalance(ctx context.Context) (decimal.Decimal, error) {
	if s.gateway == nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeDependency, "transfer gateway not configured")
	}
	return s.gateway.Balance(ctx)
}

// Get loads a withdrawal for display.
func (s *Service) Get(ctx context.Context, withdrawalID uuid.UUID) (*WithdrawalDTO, error) {
	w, err := s.load(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	return FromModel(w), nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal id is required")
	}
	w, err := s.withdrawals.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal")
	}
	if w == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal not found")
	}
	return w, nil
}

func (s *Service) current(ctx context.Context, id uuid.UUID, outcome Outcome) (*Result, error) {
	w, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Result{Withdrawal: FromModel(w), Outcome: outcome}, nil
}

func (s *Service) notify(ctx context.Context, w *models.WithdrawalRequest) {
	photographer, err := s.photographers.FindPhotographer(ctx, w.PhotographerID)
	if err != nil || photographer == nil {
		if err == nil {
			err = errors.New("photographer not found")
		}
		s.logg.Error(ctx, "payouts.notify_lookup_failed", err)
		return
	}
	note := ""
	if w.Note != nil {
		note = *w.Note
	}
	s.notifier.WithdrawalResolved(ctx, notifications.WithdrawalNotice{
		PhotographerUserID: photographer.UserID,
		WithdrawalID:       w.ID,
		Amount:             w.Amount,
		Status:             w.Status,
		Note:               note,
	})
}

func (s *Service) recordAdmin(ctx context.Context, input AdminInput, action enums.AdminAction, result *Result) {
	if input.AdminID == uuid.Nil {
		return
	}
	details := map[string]any{"outcome": string(result.Outcome)}
	if result.Reason != "" {
		details["reason"] = result.Reason
	}
	if input.Note != "" {
		details["note"] = input.Note
	}
	s.audit.RecordBestEffort(ctx, audit.Entry{
		AdminID:    input.AdminID,
		Action:     action,
		TargetType: audit.TargetWithdrawal,
		TargetID:   input.WithdrawalID.String(),
		Details:    details,
	})
}

func (s *Service) wrapTxError(ctx context.Context, msg string, err error) error {
	if pkgerrors.As(err) == nil {
		err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payout transaction")
	}
	if pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		s.logg.Error(ctx, msg, err)
	}
	return err
}

func stateConflict(reason, message string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, message).WithDetails(map[string]any{"reason": reason})
}

func alreadyProcessed(w *models.WithdrawalRequest) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "withdrawal already processed").WithDetails(map[string]any{
		"reason": ReasonAlreadyProcessed,
		"status": string(w.Status),
	})
}

func balanceError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return stateConflict(ReasonInsufficientFunds, "insufficient funds")
	case errors.Is(err, ledger.ErrBalanceInvariant):
		return stateConflict(ReasonIntegrity, "balance invariant violated")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update balance")
	}
}

// reasonOf extracts the reason detail of a coded error for metrics labels.
func reasonOf(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return "error"
	}
	if details, ok := typed.Details().(map[string]any); ok {
		if reason, ok := details["reason"].(string); ok {
			return reason
		}
	}
	return strings.ToLower(string(typed.Code()))
}

func isAlreadyProcessed(err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) && reasonOf(err) == ReasonAlreadyProcessed
}

func errorMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
		return typed.Message()
	}
	return err.Error()
}

func noteOr(note, fallback string) string {
	if trimmed := strings.TrimSpace(note); trimmed != "" {
		return trimmed
	}
	return fallback
}
