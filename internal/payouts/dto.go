package payouts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gtclicks/ledger-backend/pkg/db/models"
	"github.com/gtclicks/ledger-backend/pkg/enums"
)

// Outcome summarizes what a payout action did.
type Outcome string

const (
	OutcomeProcessed             Outcome = "processed"
	OutcomeAwaitingAuthorization Outcome = "awaiting_authorization"
	OutcomeManualRequired        Outcome = "manual_required"
	OutcomeCancelled             Outcome = "cancelled"
	OutcomeFailed                Outcome = "failed"
	OutcomeAlreadyProcessed      Outcome = "already_processed"
)

// Failure reasons carried in results and STATE_CONFLICT details.
const (
	ReasonAlreadyProcessed   = "already_processed"
	ReasonInsufficientFunds  = "insufficient_funds"
	ReasonGatewayRejected    = "gateway_rejected"
	ReasonGatewayUnavailable = "gateway_unavailable"
	ReasonNotConfigured      = "gateway_not_configured"
	ReasonIntegrity          = "integrity_violation"
)

// WithdrawalDTO is the transport shape of a withdrawal request.
type WithdrawalDTO struct {
	ID                 uuid.UUID              `json:"id"`
	PhotographerID     uuid.UUID              `json:"photographer_id"`
	Amount             decimal.Decimal        `json:"amount"`
	Status             enums.WithdrawalStatus `json:"status"`
	ManualRequired     bool                   `json:"manual_required"`
	ExternalTransferID *string                `json:"external_transfer_id,omitempty"`
	Note               *string                `json:"note,omitempty"`
	ProcessedAt        *time.Time             `json:"processed_at,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

func FromModel(w *models.WithdrawalRequest) *WithdrawalDTO {
	if w == nil {
		return nil
	}
	return &WithdrawalDTO{
		ID:                 w.ID,
		PhotographerID:     w.PhotographerID,
		Amount:             w.Amount,
		Status:             w.Status,
		ManualRequired:     w.ManualRequired,
		ExternalTransferID: w.ExternalTransferID,
		Note:               w.Note,
		ProcessedAt:        w.ProcessedAt,
		CreatedAt:          w.CreatedAt,
		UpdatedAt:          w.UpdatedAt,
	}
}

// Result is returned by every payout action.
type Result struct {
	Withdrawal *WithdrawalDTO `json:"withdrawal"`
	Outcome    Outcome        `json:"outcome"`
	Reason     string         `json:"reason,omitempty"`
}

// ListResult is one page of withdrawals.
type ListResult struct {
	Items      []WithdrawalDTO `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}
