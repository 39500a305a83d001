package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gtclicks/ledger-backend/pkg/db/dbtest"
	"github.com/gtclicks/ledger-backend/pkg/db/models"
	"github.com/gtclicks/ledger-backend/pkg/enums"
	"github.com/gtclicks/ledger-backend/pkg/outbox"
)

func TestDLQRequeueRestoresAttemptBudget(t *testing.T) {
	client := dbtest.New(t)
	repo := outbox.NewRepository(client.DB())
	dlq := outbox.NewDLQRepository(client.DB())
	ctx := context.Background()

	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventWithdrawalProcessed,
		AggregateType: enums.AggregateWithdrawal,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
	}
	require.NoError(t, repo.Insert(client.DB(), event))

	cause := errors.New("topic gtclicks-ledger not found")
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := dlq.InsertTx(tx, event.DeadLetter(enums.OutboxDLQReasonPermanent, cause, time.Now().UTC())); err != nil {
			return err
		}
		return repo.MarkTerminalTx(tx, event.ID, cause, 5)
	}))

	recent, err := dlq.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, event.ID, recent[0].EventID)

	require.NoError(t, dlq.Requeue(ctx, event.ID))

	var stored models.OutboxEvent
	require.NoError(t, client.DB().First(&stored, "id = ?", event.ID).Error)
	require.Zero(t, stored.AttemptCount)
	require.Nil(t, stored.LastError)

	found, err := dlq.FindByEventID(ctx, event.ID)
	require.NoError(t, err)
	require.Nil(t, found)

	require.ErrorIs(t, dlq.Requeue(ctx, event.ID), outbox.ErrNotDeadLettered)
}

func TestDLQInsertTruncatesOnRuneBoundary(t *testing.T) {
	client := dbtest.New(t)
	dlq := outbox.NewDLQRepository(client.DB())
	eventID := uuid.New()

	long := strings.Repeat("ã", 600)
	require.NoError(t, client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return dlq.InsertTx(tx, models.OutboxDLQ{
			EventID:       eventID,
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
			ErrorMessage:  &long,
		})
	}))

	row, err := dlq.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, row)
	require.True(t, utf8.ValidString(*row.ErrorMessage))
	require.LessOrEqual(t, len(*row.ErrorMessage), 1024)
}
