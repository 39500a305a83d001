package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gtclicks/ledger-backend/api/middleware"
	"github.com/gtclicks/ledger-backend/api/responses"
	"github.com/gtclicks/ledger-backend/api/validators"
	"github.com/gtclicks/ledger-backend/internal/payouts"
	"github.com/gtclicks/ledger-backend/pkg/enums"
	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
	"github.com/gtclicks/ledger-backend/pkg/logger"
	"github.com/gtclicks/ledger-backend/pkg/pagination"
)

const maxAdminNoteLength = 500

type adminPayouts interface {
	ListAll(ctx context.Context, status *enums.WithdrawalStatus, params pagination.Params) (*payouts.ListResult, error)
	GatewayBalance(ctx context.Context) (decimal.Decimal, error)
}

// WithdrawalAction is one admin transition on a withdrawal.
type WithdrawalAction func(ctx context.Context, input payouts.AdminInput) (*payouts.Result, error)

type adminActionRequest struct {
	Note string `json:"note" validate:"max=500"`
}

// AdminListWithdrawals lists every withdrawal, optionally filtered by ?status=.
func AdminListWithdrawals(svc adminPayouts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		parsed, err := validators.ParseQueryEnum(r, "status", enums.WithdrawalStatus.IsValid)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var status *enums.WithdrawalStatus
		if parsed != "" {
			status = &parsed
		}

		list, err := svc.ListAll(r.Context(), status, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AdminWithdrawalAction runs action against the withdrawal in the URL. The
// optional JSON body carries a note stored on the withdrawal.
func AdminWithdrawalAction(name string, action WithdrawalAction, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if action == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		adminID, ok := middleware.UserUUIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		withdrawalID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "withdrawalId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid withdrawal id"))
			return
		}

		var body adminActionRequest
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithFields(r.Context(), map[string]any{
			"withdrawal_id": withdrawalID.String(),
			"admin_id":      adminID.String(),
			"action":        name,
		})
		result, err := action(ctx, payouts.AdminInput{
			WithdrawalID: withdrawalID,
			AdminID:      adminID,
			Note:         validators.SanitizeString(body.Note, maxAdminNoteLength),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminGatewayBalance reports the transfer account balance.
func AdminGatewayBalance(svc adminPayouts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}
		balance, err := svc.GatewayBalance(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"balance": balance.StringFixed(2)})
	}
}
