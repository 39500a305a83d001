package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gtclicks/ledger-backend/api/middleware"
	"github.com/gtclicks/ledger-backend/api/responses"
	internalorders "github.com/gtclicks/ledger-backend/internal/orders"
	"github.com/gtclicks/ledger-backend/internal/settlement"
	"github.com/gtclicks/ledger-backend/pkg/enums"
	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
	"github.com/gtclicks/ledger-backend/pkg/logger"
)

type paymentVerifier interface {
	VerifyPayment(ctx context.Context, input settlement.VerifyInput) (*internalorders.VerifyResult, error)
}

// VerifyPayment reconciles an order against the provider when its webhook
// never arrived. Buyers may only verify their own orders.
func VerifyPayment(verifier paymentVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if verifier == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment verifier unavailable"))
			return
		}

		userID, ok := middleware.UserUUIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		orderID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "orderId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}
		ctx := logg.WithOrderID(r.Context(), orderID.String())

		result, err := verifier.VerifyPayment(ctx, settlement.VerifyInput{
			OrderID:     orderID,
			RequesterID: userID,
			IsAdmin:     middleware.RoleFromContext(ctx) == enums.UserRoleAdmin,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
