package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/gtclicks/ledger-backend/pkg/db/models"
	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
	"github.com/gtclicks/ledger-backend/pkg/logger"
)

const balancePageSize = 200

type LedgerConsistencyJobParams struct {
	Logger   *logger.Logger
	Balances balanceLister
	Verifier consistencyVerifier
}

type balanceLister interface {
	ListBalances(ctx context.Context, afterID uuid.UUID, limit int) ([]models.Balance, error)
}

type consistencyVerifier interface {
	VerifyConsistency(ctx context.Context, photographerID uuid.UUID) error
}

// NewLedgerConsistencyJob re-checks every balance against its entry history
// and reports all mismatches in one run. It never repairs anything.
func NewLedgerConsistencyJob(params LedgerConsistencyJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Balances == nil {
		return nil, fmt.Errorf("balance lister required")
	}
	if params.Verifier == nil {
		return nil, fmt.Errorf("consistency verifier required")
	}
	return &ledgerConsistencyJob{
		logg:     params.Logger,
		balances: params.Balances,
		verifier: params.Verifier,
	}, nil
}

type ledgerConsistencyJob struct {
	logg     *logger.Logger
	balances balanceLister
	verifier consistencyVerifier
}

func (j *ledgerConsistencyJob) Name() string { return "ledger-consistency" }

func (j *ledgerConsistencyJob) Run(ctx context.Context) error {
	var (
		errs    error
		checked int
		after   = uuid.Nil
	)
	for {
		page, err := j.balances.ListBalances(ctx, after, balancePageSize)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("list balances: %w", err))
		}
		for _, balance := range page {
			checked++
			if err := j.verifier.VerifyConsistency(ctx, balance.PhotographerID); err != nil {
				logCtx := j.logg.WithField(ctx, "photographer_id", balance.PhotographerID.String())
				if typed := pkgerrors.As(err); typed != nil {
					logCtx = j.logg.WithField(logCtx, "details", typed.Details())
				}
				j.logg.Error(logCtx, "cron.ledger_inconsistent", err)
				errs = multierr.Append(errs, err)
			}
		}
		if len(page) < balancePageSize {
			break
		}
		after = page[len(page)-1].PhotographerID
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"checked":      checked,
		"inconsistent": len(multierr.Errors(errs)),
	}), "cron.ledger_consistency_complete")
	return errs
}
