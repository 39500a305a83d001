package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/gtclicks/ledger-backend/api/middleware"
	"github.com/gtclicks/ledger-backend/api/responses"
	"github.com/gtclicks/ledger-backend/api/validators"
	"github.com/gtclicks/ledger-backend/internal/platformconfig"
	"github.com/gtclicks/ledger-backend/pkg/db/models"
	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
	"github.com/gtclicks/ledger-backend/pkg/logger"
)

const configHistoryLimit = 20

type platformSettings interface {
	Set(ctx context.Context, input platformconfig.SetInput) (*models.PlatformConfig, error)
	History(ctx context.Context, key string, limit int) ([]models.PlatformConfig, error)
}

type configUpdateRequest struct {
	Value *decimal.Decimal `json:"value" validate:"required"`
}

type configVersion struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	Version   int    `json:"version"`
	UpdatedBy string `json:"updated_by,omitempty"`
	CreatedAt string `json:"created_at"`
}

func toConfigVersion(row *models.PlatformConfig) configVersion {
	out := configVersion{
		Key:       row.Key,
		Value:     row.Value.StringFixed(2),
		Version:   row.Version,
		CreatedAt: row.CreatedAt.UTC().Format(time.RFC3339),
	}
	if row.UpdatedBy != nil {
		out.UpdatedBy = row.UpdatedBy.String()
	}
	return out
}

// AdminUpdateConfig appends a new version of the setting named in the URL.
func AdminUpdateConfig(svc platformSettings, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "platform config unavailable"))
			return
		}

		adminID, ok := middleware.UserUUIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var body configUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		key := strings.TrimSpace(chi.URLParam(r, "key"))
		ctx := logg.WithFields(r.Context(), map[string]any{"config_key": key, "admin_id": adminID.String()})
		row, err := svc.Set(ctx, platformconfig.SetInput{Key: key, Value: *body.Value, AdminID: adminID})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		logg.Info(ctx, "platformconfig.updated")
		responses.WriteSuccess(w, toConfigVersion(row))
	}
}

// AdminConfigHistory lists the most recent versions of a setting.
func AdminConfigHistory(svc platformSettings, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "platform config unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", configHistoryLimit, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.History(r.Context(), chi.URLParam(r, "key"), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]configVersion, 0, len(rows))
		for i := range rows {
			out = append(out, toConfigVersion(&rows[i]))
		}
		responses.WriteSuccess(w, out)
	}
}
