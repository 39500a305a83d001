package stripewebhook

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/gtclicks/ledger-backend/internal/webhooks"
	"github.com/gtclicks/ledger-backend/pkg/enums"
	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
	"github.com/gtclicks/ledger-backend/pkg/logger"
)

const (
	SignatureHeader = "Stripe-Signature"
	orderMetadata   = "order_id"
)

var statusByEvent = map[stripe.EventType]enums.PaymentEventStatus{
	stripe.EventTypePaymentIntentSucceeded:     enums.PaymentEventApproved,
	stripe.EventTypePaymentIntentPaymentFailed: enums.PaymentEventRejected,
	stripe.EventTypePaymentIntentCanceled:      enums.PaymentEventRejected,
	stripe.EventTypePaymentIntentProcessing:    enums.PaymentEventPending,
}

// eventVerifier is satisfied by pkg/stripe.Client.
type eventVerifier interface {
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

// Parser normalizes Stripe payment intent events.
type Parser struct {
	verifier eventVerifier
	logg     *logger.Logger
}

// NewParser builds a parser. A nil verifier accepts unsigned events.
func NewParser(verifier eventVerifier, logg *logger.Logger) *Parser {
	return &Parser{verifier: verifier, logg: logg}
}

func (p *Parser) Parse(ctx context.Context, header http.Header, body []byte) (*webhooks.PaymentEvent, error) {
	event, err := p.event(ctx, header, body)
	if err != nil {
		return nil, err
	}

	status, ok := statusByEvent[event.Type]
	if !ok || event.Data == nil {
		return nil, nil
	}
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
	}

	ctx = p.logg.WithFields(ctx, map[string]any{"event_id": event.ID, "event_type": string(event.Type)})
	orderRef := strings.TrimSpace(intent.Metadata[orderMetadata])
	if orderRef == "" {
		p.logg.Warn(ctx, "webhook.stripe.missing_order_id")
		return nil, nil
	}
	return &webhooks.PaymentEvent{
		Provider:          enums.PaymentProviderStripe,
		ExternalPaymentID: intent.ID,
		OrderReference:    orderRef,
		Status:            status,
	}, nil
}

func (p *Parser) event(ctx context.Context, header http.Header, body []byte) (stripe.Event, error) {
	if p.verifier == nil {
		p.logg.Warn(ctx, "webhook.signature_unverified")
		var event stripe.Event
		if err := json.Unmarshal(body, &event); err != nil {
			return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stripe payload")
		}
		return event, nil
	}
	signature := header.Get(SignatureHeader)
	if signature == "" {
		return stripe.Event{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing stripe signature")
	}
	event, err := p.verifier.ConstructEvent(body, signature)
	if err != nil {
		return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid stripe signature")
	}
	return event, nil
}
