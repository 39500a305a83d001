package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/gtclicks/ledger-backend/pkg/db/models"
)

type fakeOrderCanceller struct {
	batches [][]uuid.UUID
	cutoffs []time.Time
	err     error
}

func (f *fakeOrderCanceller) CancelExpired(_ context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.batches) == 0 {
		return nil, nil
	}
	next := f.batches[0]
	f.batches = f.batches[1:]
	return next, nil
}

func ids(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func TestOrderTTLJobDrainsFullBatches(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	orders := &fakeOrderCanceller{batches: [][]uuid.UUID{ids(orderTTLBatchSize), ids(3)}}
	job, err := NewOrderTTLJob(OrderTTLJobParams{Logger: testLogger(), Orders: orders})
	if err != nil {
		t.Fatalf("NewOrderTTLJob: %v", err)
	}
	job.(*orderTTLJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(orders.cutoffs) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(orders.cutoffs))
	}
	if want := now.Add(-defaultPendingOrderTTL); !orders.cutoffs[0].Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, orders.cutoffs[0])
	}
}

func TestOrderTTLJobPropagatesErrors(t *testing.T) {
	job, _ := NewOrderTTLJob(OrderTTLJobParams{Logger: testLogger(), Orders: &fakeOrderCanceller{err: errors.New("boom")}})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeFlagger struct {
	cutoff time.Time
	note   string
	result []uuid.UUID
	err    error
}

func (f *fakeFlagger) FlagStale(_ context.Context, cutoff time.Time, note string, _ int) ([]uuid.UUID, error) {
	f.cutoff, f.note = cutoff, note
	return f.result, f.err
}

func TestStaleWithdrawalJobFlagsWithConfiguredAge(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	flagger := &fakeFlagger{result: ids(2)}
	job, err := NewStaleWithdrawalJob(StaleWithdrawalJobParams{Logger: testLogger(), Withdrawals: flagger, After: 6 * time.Hour})
	if err != nil {
		t.Fatalf("NewStaleWithdrawalJob: %v", err)
	}
	job.(*staleWithdrawalJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.Add(-6 * time.Hour); !flagger.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, flagger.cutoff)
	}
	if flagger.note != staleWithdrawalNote {
		t.Fatalf("unexpected note %q", flagger.note)
	}

	flagger.err = errors.New("boom")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeBalances struct {
	rows  []models.Balance
	calls int
}

func (f *fakeBalances) ListBalances(_ context.Context, after uuid.UUID, limit int) ([]models.Balance, error) {
	f.calls++
	var page []models.Balance
	for _, row := range f.rows {
		if after != uuid.Nil && row.PhotographerID.String() <= after.String() {
			continue
		}
		page = append(page, row)
		if len(page) == limit {
			break
		}
	}
	return page, nil
}

type fakeVerifier struct {
	bad     map[uuid.UUID]bool
	checked int
}

func (f *fakeVerifier) VerifyConsistency(_ context.Context, photographerID uuid.UUID) error {
	f.checked++
	if f.bad[photographerID] {
		return errors.New("mismatch for " + photographerID.String())
	}
	return nil
}

func TestLedgerConsistencyJobReportsEveryMismatch(t *testing.T) {
	rows := make([]models.Balance, 0, balancePageSize+5)
	for _, id := range sortedIDs(balancePageSize + 5) {
		rows = append(rows, models.Balance{PhotographerID: id})
	}
	verifier := &fakeVerifier{bad: map[uuid.UUID]bool{
		rows[1].PhotographerID:                 true,
		rows[balancePageSize+2].PhotographerID: true,
	}}
	balances := &fakeBalances{rows: rows}
	job, err := NewLedgerConsistencyJob(LedgerConsistencyJobParams{Logger: testLogger(), Balances: balances, Verifier: verifier})
	if err != nil {
		t.Fatalf("NewLedgerConsistencyJob: %v", err)
	}

	err = job.Run(context.Background())
	if err == nil {
		t.Fatal("expected mismatches to be reported")
	}
	if got := len(multierr.Errors(err)); got != 2 {
		t.Fatalf("expected 2 errors, got %d", got)
	}
	if verifier.checked != len(rows) {
		t.Fatalf("expected %d checks, got %d", len(rows), verifier.checked)
	}
	if balances.calls != 2 {
		t.Fatalf("expected 2 pages, got %d", balances.calls)
	}
}

func TestLedgerConsistencyJobCleanRun(t *testing.T) {
	balances := &fakeBalances{rows: []models.Balance{{PhotographerID: uuid.New()}}}
	job, _ := NewLedgerConsistencyJob(LedgerConsistencyJobParams{Logger: testLogger(), Balances: balances, Verifier: &fakeVerifier{}})
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func sortedIDs(n int) []uuid.UUID {
	out := ids(n)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].String() < out[j-1].String(); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
