package main

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtclicks/ledger-backend/pkg/db/models"
	"github.com/gtclicks/ledger-backend/pkg/enums"
	"github.com/gtclicks/ledger-backend/pkg/logger"
)

type fakeDLQAdmin struct {
	rows      []models.OutboxDLQ
	requeued  []uuid.UUID
	requeueFn func(uuid.UUID) error
}

func (f *fakeDLQAdmin) ListRecent(context.Context, int) ([]models.OutboxDLQ, error) {
	return f.rows, nil
}

func (f *fakeDLQAdmin) Requeue(_ context.Context, id uuid.UUID) error {
	f.requeued = append(f.requeued, id)
	if f.requeueFn != nil {
		return f.requeueFn(id)
	}
	return nil
}

func TestRunDLQCommandRequeue(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	admin := &fakeDLQAdmin{}
	id := uuid.New()

	require.NoError(t, runDLQCommand(context.Background(), logg, admin, dlqCommand{requeue: id.String()}, io.Discard))
	assert.Equal(t, []uuid.UUID{id}, admin.requeued)

	err := runDLQCommand(context.Background(), logg, admin, dlqCommand{requeue: "not-a-uuid"}, io.Discard)
	assert.ErrorContains(t, err, "invalid -requeue")
}

func TestRunDLQCommandList(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	msg := "publish timeout"
	admin := &fakeDLQAdmin{rows: []models.OutboxDLQ{{
		EventID:      uuid.New(),
		EventType:    enums.EventWithdrawalProcessed,
		ErrorReason:  enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage: &msg,
		FailedAt:     time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}}}

	var out bytes.Buffer
	require.NoError(t, runDLQCommand(context.Background(), logg, admin, dlqCommand{list: true}, &out))
	assert.Contains(t, out.String(), "2026-03-02T10:00:00Z")
	assert.Contains(t, out.String(), "max_attempts")
	assert.Contains(t, out.String(), "publish timeout")
}
