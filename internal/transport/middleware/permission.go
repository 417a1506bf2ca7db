package middleware

import (
	"context"
	"net/http"

	"github.com/frahmantamala/salon-portal/internal"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/user"
	"github.com/frahmantamala/salon-portal/internal/transport"
	"github.com/frahmantamala/salon-portal/pkg/logger"
)

// UserResolver maps the request's token to its user.
type UserResolver interface {
	Resolve(ctx context.Context) (*user.User, error)
}

// RequireAdmin lets through staff and superusers only.
func RequireAdmin(resolver UserResolver) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(nil)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := resolver.Resolve(r.Context())
			if err != nil {
				base.WriteAppError(w, r, err)
				return
			}

			if !u.IsAdmin() {
				logger.From(r.Context()).Warn("access denied: admin required",
					"user_id", u.ID,
					"is_staff", u.IsStaff)
				base.WriteAppError(w, r, internal.NewForbiddenError("admin access required", internal.ErrCodeAdminRequired))
				return
			}

			ctx := logger.With(r.Context(), "user_id", u.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
