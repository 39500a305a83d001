package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gtclicks/ledger-backend/internal/platformconfig"
	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
)

const recentEntriesLimit = 20

type configReader interface {
	GetNumber(ctx context.Context, key string) (decimal.Decimal, error)
}

// Summary is the photographer-facing financial overview.
type Summary struct {
	Available          decimal.Decimal `json:"available"`
	Blocked            decimal.Decimal `json:"blocked"`
	TotalSold          decimal.Decimal `json:"total_sold"`
	TotalWithdrawn     decimal.Decimal `json:"total_withdrawn"`
	PendingWithdrawals decimal.Decimal `json:"pending_withdrawals"`
	MinWithdrawal      decimal.Decimal `json:"min_withdrawal"`
	Entries            []EntryView     `json:"entries"`
}

type EntryView struct {
	ID          uuid.UUID       `json:"id"`
	Kind        string          `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Service exposes read models over the ledger.
type Service interface {
	Summary(ctx context.Context, photographerID uuid.UUID) (*Summary, error)
	VerifyConsistency(ctx context.Context, photographerID uuid.UUID) error
}

type service struct {
	repo   Repository
	config configReader
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository, config configReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if config == nil {
		return nil, fmt.Errorf("platform config reader required")
	}
	return &service{repo: repo, config: config}, nil
}

func (s *service) Summary(ctx context.Context, photographerID uuid.UUID) (*Summary, error) {
	if photographerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "photographer id is required")
	}

	summary := &Summary{Entries: []EntryView{}}
	balance, err := s.repo.FindBalance(ctx, photographerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load balance")
	}
	if balance != nil {
		summary.Available = balance.Available
		summary.Blocked = balance.Blocked
	}

	totals, err := s.repo.Totals(ctx, photographerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger totals")
	}
	summary.TotalSold = totals.TotalSold
	summary.TotalWithdrawn = totals.TotalWithdrawn
	summary.PendingWithdrawals = totals.PendingWithdrawals

	minimum, err := s.config.GetNumber(ctx, platformconfig.KeyMinWithdrawal)
	if err != nil {
		return nil, err
	}
	summary.MinWithdrawal = minimum

	entries, err := s.repo.ListEntries(ctx, photographerID, recentEntriesLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}
	for _, entry := range entries {
		summary.Entries = append(summary.Entries, EntryView{
			ID:          entry.ID,
			Kind:        string(entry.Kind),
			Amount:      entry.Amount,
			Description: entry.Description,
			Status:      string(entry.Status),
			CreatedAt:   entry.CreatedAt,
		})
	}
	return summary, nil
}

// VerifyConsistency checks that the balance row agrees with the entry history:
// sales minus processed withdrawals equals available plus blocked, and blocked
// equals the pending withdrawals.
func (s *service) VerifyConsistency(ctx context.Context, photographerID uuid.UUID) error {
	balance, err := s.repo.FindBalance(ctx, photographerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load balance")
	}
	totals, err := s.repo.Totals(ctx, photographerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger totals")
	}

	available, blocked := decimal.Zero, decimal.Zero
	if balance != nil {
		available, blocked = balance.Available, balance.Blocked
	}

	expected := totals.TotalSold.Sub(totals.TotalWithdrawn)
	if !expected.Equal(available.Add(blocked)) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "balance does not match ledger history").WithDetails(map[string]any{
			"reason":          "integrity_violation",
			"photographer_id": photographerID.String(),
			"expected":        expected.StringFixed(2),
			"actual":          available.Add(blocked).StringFixed(2),
		})
	}
	if !totals.PendingWithdrawals.Equal(blocked) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "blocked funds do not match pending withdrawals").WithDetails(map[string]any{
			"reason":          "integrity_violation",
			"photographer_id": photographerID.String(),
			"expected":        totals.PendingWithdrawals.StringFixed(2),
			"actual":          blocked.StringFixed(2),
		})
	}
	return nil
}
