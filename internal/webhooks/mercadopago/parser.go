package mercadopagowebhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gtclicks/ledger-backend/internal/webhooks"
	"github.com/gtclicks/ledger-backend/pkg/enums"
	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
	"github.com/gtclicks/ledger-backend/pkg/logger"
	"github.com/gtclicks/ledger-backend/pkg/mercadopago"
)

const (
	SignatureHeader = "x-signature"
	RequestIDHeader = "x-request-id"

	signatureTolerance = 300 * time.Second
)

var statusByPayment = map[string]enums.PaymentEventStatus{
	"approved":   enums.PaymentEventApproved,
	"rejected":   enums.PaymentEventRejected,
	"cancelled":  enums.PaymentEventRejected,
	"pending":    enums.PaymentEventPending,
	"in_process": enums.PaymentEventPending,
	"authorized": enums.PaymentEventPending,
}

type paymentFetcher interface {
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

type payload struct {
	Type     string `json:"type"`
	Topic    string `json:"topic"`
	Resource string `json:"resource"`
	Data     *struct {
		ID resourceID `json:"id"`
	} `json:"data"`
}

// resourceID accepts both numeric and string ids.
type resourceID string

func (r *resourceID) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*r = resourceID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return err
	}
	*r = resourceID(n.String())
	return nil
}

type Params struct {
	// Payments is nil when no access token is configured.
	Payments paymentFetcher
	Secret   string
	Logger   *logger.Logger
	Clock    func() time.Time
}

// Parser normalizes Mercado Pago notifications. The notification only names
// the payment, so the status is always read back from the payments API.
type Parser struct {
	payments paymentFetcher
	secret   string
	logg     *logger.Logger
	now      func() time.Time
}

func NewParser(params Params) *Parser {
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Parser{
		payments: params.Payments,
		secret:   strings.TrimSpace(params.Secret),
		logg:     params.Logger,
		now:      clock,
	}
}

func (p *Parser) Parse(ctx context.Context, header http.Header, body []byte) (*webhooks.PaymentEvent, error) {
	var in payload
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid mercadopago payload")
	}

	// The signature manifest covers data.id, so legacy topic/resource
	// notifications cannot be verified. The status is still read back from
	// the payments API.
	switch {
	case p.secret == "":
		p.logg.Warn(p.logg.WithField(ctx, "reason", "secret_missing"), "webhook.signature_unverified")
	case in.Data == nil || in.Data.ID == "":
		p.logg.Warn(p.logg.WithFields(ctx, map[string]any{
			"reason": "no_data_id",
			"topic":  in.Topic,
		}), "webhook.signature_unverified")
	default:
		if reason := p.verify(header, string(in.Data.ID)); reason != "" {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature").
				WithDetails(map[string]any{"reason": reason})
		}
	}

	paymentID := paymentIDFrom(in)
	if paymentID == "" {
		return nil, nil
	}
	if p.payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mercadopago client not configured")
	}

	payment, err := p.payments.GetPayment(ctx, paymentID)
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch mercadopago payment")
		}
		return nil, err
	}

	ctx = p.logg.WithFields(ctx, map[string]any{"payment_id": paymentID, "mp_status": payment.Status})
	status, ok := statusByPayment[payment.Status]
	if !ok {
		// refunded and charged_back land here; a PAID order is never reverted.
		p.logg.Warn(ctx, "webhook.mercadopago.status_ignored")
		return nil, nil
	}
	if strings.TrimSpace(payment.ExternalReference) == "" {
		p.logg.Warn(ctx, "webhook.mercadopago.missing_reference")
		return nil, nil
	}
	return &webhooks.PaymentEvent{
		Provider:          enums.PaymentProviderMercadoPago,
		ExternalPaymentID: paymentID,
		OrderReference:    payment.ExternalReference,
		Status:            status,
	}, nil
}

func paymentIDFrom(in payload) string {
	if in.Type == "payment" && in.Data != nil {
		return strings.TrimSpace(string(in.Data.ID))
	}
	if in.Topic == "payment" {
		resource := strings.TrimSpace(in.Resource)
		if i := strings.LastIndex(resource, "/"); i >= 0 {
			resource = resource[i+1:]
		}
		return resource
	}
	return ""
}

// verify checks x-signature (ts=...,v1=...) and returns a reason on failure.
func (p *Parser) verify(header http.Header, dataID string) string {
	signature := header.Get(SignatureHeader)
	if signature == "" {
		return "missing_signature"
	}
	var ts, hash string
	for _, part := range strings.Split(signature, ",") {
		key, value, _ := strings.Cut(part, "=")
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "v1":
			hash = strings.TrimSpace(value)
		}
	}
	if ts == "" || hash == "" {
		return "invalid_signature_format"
	}
	seconds, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "invalid_timestamp"
	}
	age := p.now().Sub(time.Unix(seconds, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return "timestamp_expired"
	}

	expected := Sign(p.secret, dataID, header.Get(RequestIDHeader), ts)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(hash))) {
		return "signature_mismatch"
	}
	return ""
}

// Sign computes the v1 hash for a notification manifest.
func Sign(secret, dataID, requestID, ts string) string {
	manifest := "id:" + strings.ToLower(dataID) + ";request-id:" + requestID + ";ts:" + ts + ";"
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return hex.EncodeToString(mac.Sum(nil))
}
