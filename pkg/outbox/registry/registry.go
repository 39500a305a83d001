// Package registry knows every event type the outbox may carry: which
// aggregate it belongs to, which topic it goes to and how its data decodes.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gtclicks/ledger-backend/pkg/config"
	"github.com/gtclicks/ledger-backend/pkg/db/models"
	"github.com/gtclicks/ledger-backend/pkg/enums"
	"github.com/gtclicks/ledger-backend/pkg/outbox"
	"github.com/gtclicks/ledger-backend/pkg/outbox/payloads"
)

type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string

	decode func(json.RawMessage) (any, error)
}

type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// PermanentError marks a row that can never be published as stored.
// The publisher dead-letters it instead of retrying.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent: " + e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func Permanent(err error) error {
	return &PermanentError{Err: err}
}

func Permanentf(format string, args ...any) error {
	return Permanent(fmt.Errorf(format, args...))
}

func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.LedgerTopic == "" {
		return nil, errors.New("ledger topic is required")
	}
	topic := cfg.LedgerTopic
	return &EventRegistry{entries: index(
		describe[payloads.OrderPaidEvent](enums.EventOrderPaid, enums.AggregateOrder, topic),
		describe[payloads.SaleRecordedEvent](enums.EventSaleRecorded, enums.AggregateOrder, topic),
		describe[payloads.WithdrawalResolvedEvent](enums.EventWithdrawalProcessed, enums.AggregateWithdrawal, topic),
		describe[payloads.WithdrawalResolvedEvent](enums.EventWithdrawalRejected, enums.AggregateWithdrawal, topic),
		describe[payloads.WithdrawalResolvedEvent](enums.EventWithdrawalCancelled, enums.AggregateWithdrawal, topic),
	)}, nil
}

func describe[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:     eventType,
		AggregateType: aggregate,
		Topic:         topic,
		decode: func(raw json.RawMessage) (any, error) {
			payload := new(T)
			if err := json.Unmarshal(raw, payload); err != nil {
				return nil, err
			}
			return payload, nil
		},
	}
}

func index(descs ...EventDescriptor) map[enums.OutboxEventType]EventDescriptor {
	m := make(map[enums.OutboxEventType]EventDescriptor, len(descs))
	for _, d := range descs {
		m[d.EventType] = d
	}
	return m
}

// Types lists the registered event types.
func (r *EventRegistry) Types() []enums.OutboxEventType {
	types := make([]enums.OutboxEventType, 0, len(r.entries))
	for t := range r.entries {
		types = append(types, t)
	}
	return types
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure is permanent: retrying the same bytes cannot succeed.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, Permanentf("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, Permanentf("aggregate mismatch: %s belongs to %s, row says %s", event.EventType, desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, Permanentf("missing aggregate_id")
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, Permanentf("decode envelope: %w", err)
	}
	if envelope.EventID != event.ID.String() {
		return nil, Permanentf("envelope event id %q does not match row %s", envelope.EventID, event.ID)
	}
	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, Permanentf("payload missing for %s", event.EventType)
	}

	payload, err := desc.decode(data)
	if err != nil {
		return nil, Permanentf("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
