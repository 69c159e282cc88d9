package middleware

import (
	"net/http"
	"strings"

	"github.com/crowdshield/dashboard/backend/internal/auth"
	"github.com/crowdshield/dashboard/backend/pkg/utils"
)

// TokenValidator checks a bearer token. *auth.Signer satisfies it.
type TokenValidator interface {
	Validate(raw string) (*auth.Claims, error)
}

// RequireOperator admits requests carrying a valid operator bearer token. A
// nil validator leaves the route open.
func RequireOperator(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if validator == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="crowdshield"`)
				utils.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			claims, err := validator.Validate(raw)
			if err != nil {
				utils.RespondError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			if !claims.HasRole(auth.RoleOperator) {
				utils.RespondError(w, http.StatusForbidden, auth.ErrMissingRole.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
