package middleware

import (
	"net/http"
	"slices"

	"github.com/gtclicks/ledger-backend/api/responses"
	"github.com/gtclicks/ledger-backend/pkg/enums"
	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
	"github.com/gtclicks/ledger-backend/pkg/logger"
)

// RequireRole rejects principals whose role is not in roles. It must run
// after Auth; an unauthenticated request has no role and is forbidden.
func RequireRole(logg *logger.Logger, roles ...enums.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role != "" && slices.Contains(roles, role) {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithActorRole(ctx, string(role))
			}
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted for this route"))
		})
	}
}
