package asaaswebhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gtclicks/ledger-backend/internal/webhooks"
	"github.com/gtclicks/ledger-backend/pkg/enums"
	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
	"github.com/gtclicks/ledger-backend/pkg/logger"
)

// TokenHeader carries the shared token configured on the Asaas webhook.
const TokenHeader = "asaas-access-token"

var statusByEvent = map[string]enums.PaymentEventStatus{
	"PAYMENT_RECEIVED":                  enums.PaymentEventApproved,
	"PAYMENT_CONFIRMED":                 enums.PaymentEventApproved,
	"PAYMENT_REFUSED":                   enums.PaymentEventRejected,
	"PAYMENT_DELETED":                   enums.PaymentEventRejected,
	"PAYMENT_REPROVED_BY_RISK_ANALYSIS": enums.PaymentEventRejected,
	"PAYMENT_CREATED":                   enums.PaymentEventPending,
	"PAYMENT_AWAITING_RISK_ANALYSIS":    enums.PaymentEventPending,
}

type payload struct {
	Event   string `json:"event"`
	Payment *struct {
		ID                string `json:"id"`
		ExternalReference string `json:"externalReference"`
		Status            string `json:"status"`
	} `json:"payment"`
}

// Parser normalizes Asaas payment webhooks.
type Parser struct {
	token string
	logg  *logger.Logger
}

// NewParser builds a parser. An empty token disables the token check.
func NewParser(token string, logg *logger.Logger) *Parser {
	return &Parser{token: strings.TrimSpace(token), logg: logg}
}

func (p *Parser) Parse(ctx context.Context, header http.Header, body []byte) (*webhooks.PaymentEvent, error) {
	if p.token == "" {
		p.logg.Warn(ctx, "webhook.signature_unverified")
	} else if subtle.ConstantTimeCompare([]byte(header.Get(TokenHeader)), []byte(p.token)) != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook token")
	}

	var in payload
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid asaas payload")
	}
	if in.Payment == nil {
		return nil, nil
	}
	status, ok := statusByEvent[in.Event]
	if !ok {
		return nil, nil
	}
	if strings.TrimSpace(in.Payment.ExternalReference) == "" {
		p.logg.Warn(p.logg.WithField(ctx, "event", in.Event), "webhook.asaas.missing_reference")
		return nil, nil
	}
	return &webhooks.PaymentEvent{
		Provider:          enums.PaymentProviderAsaas,
		ExternalPaymentID: in.Payment.ID,
		OrderReference:    in.Payment.ExternalReference,
		Status:            status,
	}, nil
}
