package middleware

import (
	"net/http"

	"github.com/frahmantamala/salon-portal/internal"
	"github.com/frahmantamala/salon-portal/internal/transport"
	"github.com/frahmantamala/salon-portal/pkg/logger"
)

// Token copies the caller's API token from the Authorization header onto the request
// context, where the API client picks it up. Requests without a token pass through.
func Token(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := transport.ExtractToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := internal.ContextWithToken(r.Context(), token)
		ctx = logger.With(ctx, "authenticated", true)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireToken rejects requests that carry no token.
func RequireToken(next http.Handler) http.Handler {
	base := transport.NewBaseHandler(nil)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if internal.TokenFromContext(r.Context()) == "" {
			base.WriteAppError(w, r, internal.ErrNotAuthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}
