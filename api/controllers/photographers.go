package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gtclicks/ledger-backend/api/middleware"
	"github.com/gtclicks/ledger-backend/api/responses"
	"github.com/gtclicks/ledger-backend/api/validators"
	"github.com/gtclicks/ledger-backend/internal/ledger"
	"github.com/gtclicks/ledger-backend/internal/payouts"
	"github.com/gtclicks/ledger-backend/internal/users"
	"github.com/gtclicks/ledger-backend/pkg/db/models"
	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
	"github.com/gtclicks/ledger-backend/pkg/logger"
	"github.com/gtclicks/ledger-backend/pkg/pagination"
)

type photographerFinder interface {
	FindPhotographerByUserID(ctx context.Context, userID uuid.UUID) (*models.Photographer, error)
}

type photographerPayouts interface {
	Request(ctx context.Context, input payouts.RequestInput) (*payouts.Result, error)
	ListForPhotographer(ctx context.Context, photographerID uuid.UUID, params pagination.Params) (*payouts.ListResult, error)
}

type balanceResponse struct {
	Photographer *users.PhotographerDTO `json:"photographer"`
	Summary      *ledger.Summary        `json:"summary"`
}

type withdrawalRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"brl"`
}

// resolvePhotographer maps the authenticated user onto their payout profile.
func resolvePhotographer(r *http.Request, finder photographerFinder) (*models.Photographer, error) {
	userID, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	photographer, err := finder.FindPhotographerByUserID(r.Context(), userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load photographer")
	}
	if photographer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "photographer profile not found")
	}
	return photographer, nil
}

// PhotographerBalance returns the caller's balance and recent ledger entries.
func PhotographerBalance(finder photographerFinder, svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if finder == nil || svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}
		photographer, err := resolvePhotographer(r, finder)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Summary(r.Context(), photographer.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, balanceResponse{
			Photographer: users.FromPhotographer(photographer),
			Summary:      summary,
		})
	}
}

// ListMyWithdrawals pages through the caller's withdrawal requests.
func ListMyWithdrawals(finder photographerFinder, svc photographerPayouts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if finder == nil || svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}
		photographer, err := resolvePhotographer(r, finder)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListForPhotographer(r.Context(), photographer.ID, pagination.Params{
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

// RequestWithdrawal reserves funds and attempts the PIX transfer.
func RequestWithdrawal(finder photographerFinder, svc photographerPayouts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if finder == nil || svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}
		photographer, err := resolvePhotographer(r, finder)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body withdrawalRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithUserID(r.Context(), photographer.UserID.String())
		result, err := svc.Request(ctx, payouts.RequestInput{
			PhotographerID: photographer.ID,
			Amount:         body.Amount,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
