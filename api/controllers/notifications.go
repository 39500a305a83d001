package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gtclicks/ledger-backend/api/middleware"
	"github.com/gtclicks/ledger-backend/api/responses"
	"github.com/gtclicks/ledger-backend/api/validators"
	"github.com/gtclicks/ledger-backend/internal/notifications"
	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
	"github.com/gtclicks/ledger-backend/pkg/logger"
	"github.com/gtclicks/ledger-backend/pkg/pagination"
)

// NotificationInbox is the per-user notice feed behind the /notifications routes.
type NotificationInbox interface {
	List(ctx context.Context, params notifications.ListParams) (*notifications.Page, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

// inboxHandler resolves the caller and hands the request to fn; every
// notification route needs both.
func inboxHandler(inbox NotificationInbox, logg *logger.Logger, fn func(r *http.Request, userID uuid.UUID) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if inbox == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications unavailable"))
			return
		}
		userID, ok := middleware.UserUUIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}
		body, err := fn(r, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, body)
	}
}

// ListNotifications pages through the caller's notices, newest first.
func ListNotifications(inbox NotificationInbox, logg *logger.Logger) http.HandlerFunc {
	return inboxHandler(inbox, logg, func(r *http.Request, userID uuid.UUID) (any, error) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			return nil, err
		}
		unreadOnly, err := validators.ParseQueryBool(r, "unreadOnly")
		if err != nil {
			return nil, err
		}
		return inbox.List(r.Context(), notifications.ListParams{
			UserID:     userID,
			Limit:      limit,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
			UnreadOnly: unreadOnly,
		})
	})
}

func MarkNotificationRead(inbox NotificationInbox, logg *logger.Logger) http.HandlerFunc {
	return inboxHandler(inbox, logg, func(r *http.Request, userID uuid.UUID) (any, error) {
		notificationID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "notificationId")))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification id")
		}
		if err := inbox.MarkRead(r.Context(), userID, notificationID); err != nil {
			return nil, err
		}
		return map[string]bool{"read": true}, nil
	})
}

func MarkAllNotificationsRead(inbox NotificationInbox, logg *logger.Logger) http.HandlerFunc {
	return inboxHandler(inbox, logg, func(r *http.Request, userID uuid.UUID) (any, error) {
		updated, err := inbox.MarkAllRead(r.Context(), userID)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"updated": updated}, nil
	})
}
