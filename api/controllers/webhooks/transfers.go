package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gtclicks/ledger-backend/api/responses"
	"github.com/gtclicks/ledger-backend/internal/transferauth"
	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
	"github.com/gtclicks/ledger-backend/pkg/logger"
)

// TransferTokenHeader carries the shared secret on Asaas transfer callbacks.
const TransferTokenHeader = "asaas-access-token"

type transferAuthorizer interface {
	Decide(ctx context.Context, token string, cb *transferauth.Callback) transferauth.Decision
	HandleEvent(ctx context.Context, token string, event *transferauth.Event) error
}

// TransferAuthorization always answers 200 with an APPROVED or REFUSED decision.
// Asaas treats anything else as approval, so malformed bodies refuse too.
func TransferAuthorization(handler transferAuthorizer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logg.WithProvider(r.Context(), "asaas")
		if handler == nil {
			logg.Warn(ctx, "transfer_auth.not_configured")
			responses.WriteJSON(w, http.StatusOK, transferauth.Decision{Status: transferauth.StatusRefused, RefuseReason: "authorization not configured"})
			return
		}

		var cb *transferauth.Callback
		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err == nil {
			var decoded transferauth.Callback
			if jsonErr := json.Unmarshal(payload, &decoded); jsonErr == nil {
				cb = &decoded
			}
		}

		decision := handler.Decide(ctx, r.Header.Get(TransferTokenHeader), cb)
		responses.WriteJSON(w, http.StatusOK, decision)
	}
}

// TransferEvents reverts withdrawals whose transfer failed or was cancelled.
func TransferEvents(handler transferAuthorizer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logg.WithProvider(r.Context(), "asaas")
		if handler == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer events not configured"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}
		var event transferauth.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transfer event"))
			return
		}

		if err := handler.HandleEvent(ctx, r.Header.Get(TransferTokenHeader), &event); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, receivedResponse{Received: true})
	}
}
