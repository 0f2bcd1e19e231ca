package middleware

import (
	"context"
	"net/http"
	"slices"

	"github.com/gorilla/mux"

	"github.com/farmerhub/marketplace-api/internal/auth"
	"github.com/farmerhub/marketplace-api/internal/models"
)

const identityKey contextKey = "identity"

// Verifier resolves a session token to an identity
type Verifier interface {
	Verify(token string) (auth.Identity, error)
}

// Authenticate requires a valid session token and, when roles are given,
// one of those roles. Missing or bad tokens get 401, other roles get 403.
func Authenticate(verifier Verifier, cookieName string, roles ...models.Role) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.FromRequest(r, cookieName)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "authentication_error", "Authentication required")
				return
			}

			identity, err := verifier.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "authentication_error", "Invalid or expired token")
				return
			}

			if len(roles) > 0 && !slices.Contains(roles, identity.Role) {
				writeError(w, http.StatusForbidden, "authorization_error", "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func WithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFrom returns the identity placed by Authenticate
func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(auth.Identity)
	return identity, ok
}
