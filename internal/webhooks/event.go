package webhooks

import (
	"context"
	"net/http"

	"github.com/gtclicks/ledger-backend/pkg/enums"
)

// PaymentEvent is a gateway notification normalized to the fields the
// settlement engine needs.
type PaymentEvent struct {
	Provider          enums.PaymentProvider
	ExternalPaymentID string
	OrderReference    string
	Status            enums.PaymentEventStatus
}

// Parser turns a raw provider delivery into a PaymentEvent. A nil event with a
// nil error means the delivery is acknowledged without side effects.
type Parser interface {
	Parse(ctx context.Context, header http.Header, body []byte) (*PaymentEvent, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(ctx context.Context, header http.Header, body []byte) (*PaymentEvent, error)

func (f ParserFunc) Parse(ctx context.Context, header http.Header, body []byte) (*PaymentEvent, error) {
	return f(ctx, header, body)
}
