package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/gtclicks/ledger-backend/api/responses"
	paymentwebhooks "github.com/gtclicks/ledger-backend/internal/webhooks"
	"github.com/gtclicks/ledger-backend/pkg/enums"
	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
	"github.com/gtclicks/ledger-backend/pkg/logger"
)

const maxWebhookBody = 1 << 20

type paymentDispatcher interface {
	Dispatch(ctx context.Context, event *paymentwebhooks.PaymentEvent) (paymentwebhooks.Outcome, error)
}

type receivedResponse struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome,omitempty"`
}

// PaymentWebhook parses a provider delivery and hands it to the dispatcher.
// Handled and ignored deliveries are acknowledged with 200 so the provider
// stops retrying; failures map through the error taxonomy so it redelivers.
func PaymentWebhook(provider enums.PaymentProvider, parser paymentwebhooks.Parser, dispatcher paymentDispatcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logg.WithProvider(r.Context(), string(provider))

		if parser == nil || dispatcher == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment webhook not configured"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		event, err := parser.Parse(ctx, r.Header, payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		outcome, err := dispatcher.Dispatch(ctx, event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteJSON(w, http.StatusOK, receivedResponse{Received: true, Outcome: string(outcome)})
	}
}
