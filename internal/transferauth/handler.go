package transferauth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gtclicks/ledger-backend/internal/payouts"
	"github.com/gtclicks/ledger-backend/pkg/enums"
	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
	"github.com/gtclicks/ledger-backend/pkg/logger"
	"github.com/gtclicks/ledger-backend/pkg/metrics"
)

const (
	StatusApproved = "APPROVED"
	StatusRefused  = "REFUSED"

	callbackTypeTransfer = "TRANSFER"

	EventTransferFailed    = "TRANSFER_FAILED"
	EventTransferCancelled = "TRANSFER_CANCELLED"
)

var valueTolerance = decimal.RequireFromString("0.01")

// Transfer is the transfer object carried by Asaas callbacks.
type Transfer struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Value       decimal.Decimal `json:"value"`
	Description *string         `json:"description"`
	FailReason  *string         `json:"failReason"`
}

func (t *Transfer) description() string {
	if t == nil || t.Description == nil {
		return ""
	}
	return strings.TrimSpace(*t.Description)
}

// Callback is the body of a transfer authorization request.
type Callback struct {
	Type     string    `json:"type"`
	Transfer *Transfer `json:"transfer"`
}

// Event is the body of a transfer status webhook.
type Event struct {
	Event    string    `json:"event"`
	Transfer *Transfer `json:"transfer"`
}

// Decision is always answered with HTTP 200.
type Decision struct {
	Status       string `json:"status"`
	RefuseReason string `json:"refuseReason,omitempty"`
}

func approve() Decision { return Decision{Status: StatusApproved} }

func refuse(reason string) Decision {
	return Decision{Status: StatusRefused, RefuseReason: reason}
}

type payoutResolver interface {
	Get(ctx context.Context, withdrawalID uuid.UUID) (*payouts.WithdrawalDTO, error)
	RevertPending(ctx context.Context, withdrawalID uuid.UUID, reason string) (*payouts.Result, error)
	CompleteAuthorized(ctx context.Context, withdrawalID uuid.UUID, transferID string) (*payouts.Result, error)
}

// Handler answers Asaas transfer authorization callbacks and transfer status
// events. Unrecognized transfers are always refused.
type Handler struct {
	payouts payoutResolver
	token   string
	metrics *metrics.LedgerMetrics
	logg    *logger.Logger
}

// NewHandler builds a handler. An empty token disables token checks.
func NewHandler(resolver payoutResolver, token string, m *metrics.LedgerMetrics, logg *logger.Logger) (*Handler, error) {
	if resolver == nil {
		return nil, fmt.Errorf("payout resolver required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Handler{payouts: resolver, token: strings.TrimSpace(token), metrics: m, logg: logg}, nil
}

func (h *Handler) tokenMatches(received string) bool {
	if h.token == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(h.token), []byte(received)) == 1
}

// Decide matches the callback to a PENDING withdrawal. Every failure,
// including internal ones, degrades to REFUSED.
func (h *Handler) Decide(ctx context.Context, token string, cb *Callback) (decision Decision) {
	defer func() {
		if r := recover(); r != nil {
			h.logg.Error(ctx, "transfer_auth.panic", fmt.Errorf("%v", r))
			decision = refuse("internal error")
		}
		h.metrics.IncAuthorization(decision.Status)
	}()

	if !h.tokenMatches(token) {
		h.logg.Warn(ctx, "transfer_auth.invalid_token")
		return refuse("invalid token")
	}
	if cb == nil || cb.Type != callbackTypeTransfer || cb.Transfer == nil {
		h.logg.Warn(ctx, "transfer_auth.invalid_payload")
		return refuse("invalid payload or type is not TRANSFER")
	}

	transfer := cb.Transfer
	ctx = h.logg.WithField(ctx, "transfer_id", transfer.ID)
	withdrawalID, ok := payouts.ParseDescription(transfer.description())
	if !ok {
		h.logg.Warn(ctx, "transfer_auth.not_recognized")
		return refuse("transfer not recognized")
	}
	ctx = h.logg.WithWithdrawalID(ctx, withdrawalID.String())

	withdrawal, err := h.payouts.Get(ctx, withdrawalID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			h.logg.Warn(ctx, "transfer_auth.withdrawal_not_found")
			return refuse("withdrawal not found")
		}
		h.logg.Error(ctx, "transfer_auth.lookup_failed", err)
		return refuse("internal error")
	}
	if withdrawal.Status != enums.WithdrawalStatusPending {
		h.logg.Warn(h.logg.WithField(ctx, "status", string(withdrawal.Status)), "transfer_auth.already_resolved")
		return refuse("withdrawal already processed")
	}

	if !transfer.Value.IsPositive() || transfer.Value.Sub(withdrawal.Amount).Abs().GreaterThan(valueTolerance) {
		ctx = h.logg.WithFields(ctx, map[string]any{
			"transfer_value":   transfer.Value.String(),
			"withdrawal_value": withdrawal.Amount.StringFixed(2),
		})
		h.logg.Warn(ctx, "transfer_auth.value_mismatch")
		if _, err := h.payouts.RevertPending(ctx, withdrawalID, "authorization refused: transfer value does not match withdrawal, amount returned to balance"); err != nil {
			h.logg.Error(ctx, "transfer_auth.revert_failed", err)
		}
		return refuse("transfer value does not match withdrawal")
	}

	if _, err := h.payouts.CompleteAuthorized(ctx, withdrawalID, transfer.ID); err != nil {
		h.logg.Error(ctx, "transfer_auth.complete_failed", err)
		return refuse("internal error")
	}
	h.logg.Info(ctx, "transfer_auth.approved")
	return approve()
}

// HandleEvent reverts the matching PENDING withdrawal when Asaas reports a
// failed or cancelled transfer. Only a token mismatch is an error; anything
// unrecognized is acknowledged.
func (h *Handler) HandleEvent(ctx context.Context, token string, event *Event) error {
	if !h.tokenMatches(token) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook token")
	}
	if event == nil || event.Transfer == nil {
		return nil
	}
	if event.Event != EventTransferFailed && event.Event != EventTransferCancelled {
		return nil
	}
	withdrawalID, ok := payouts.ParseDescription(event.Transfer.description())
	if !ok {
		return nil
	}

	ctx = h.logg.WithFields(ctx, map[string]any{
		"transfer_id":   event.Transfer.ID,
		"withdrawal_id": withdrawalID.String(),
		"event":         event.Event,
	})
	reason := "PIX transfer cancelled by the gateway, amount returned to balance"
	if event.Event == EventTransferFailed {
		reason = "PIX transfer failed at the gateway"
		if event.Transfer.FailReason != nil && strings.TrimSpace(*event.Transfer.FailReason) != "" {
			reason += ": " + strings.TrimSpace(*event.Transfer.FailReason)
		}
	}

	if _, err := h.payouts.RevertPending(ctx, withdrawalID, reason); err != nil {
		switch {
		case pkgerrors.IsCode(err, pkgerrors.CodeNotFound), pkgerrors.IsCode(err, pkgerrors.CodeStateConflict):
			h.logg.Info(ctx, "transfer_event.ignored")
			return nil
		default:
			h.logg.Error(ctx, "transfer_event.revert_failed", err)
			return err
		}
	}
	h.logg.Info(ctx, "transfer_event.reverted")
	return nil
}
