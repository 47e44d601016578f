package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"jogger.org/internal/account"
	"jogger.org/internal/policy"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/healthz",
	"/readyz",
	"/metrics",
	"/v1/info",
	"/v1/auth/register",
	"/v1/auth/token",
	"/v1/auth/reset",
	"/v1/auth/reset/confirm",
	"/",
}

// withAuth authenticates every non-public request and stores the resolved
// principal in the request context. The principal is loaded from the account
// store on each request, so a deleted account or a flipped superuser bit
// takes effect immediately rather than at token expiry.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := ParseAndValidate(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}
		accountID, err := claims.AccountID()
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}
		acc, err := a.accounts.Get(r.Context(), accountID)
		if err != nil {
			if errors.Is(err, account.ErrNotFound) {
				writeError(w, r, http.StatusUnauthorized, "invalid token")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "authentication error")
			return
		}

		principal := policy.Principal{AccountID: acc.ID, Superuser: acc.Superuser}
		ctx := policy.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requirePrincipal fetches the authenticated principal or writes a 401.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (policy.Principal, bool) {
	principal, ok := policy.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return policy.Principal{}, false
	}
	return principal, true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
