package httpapi

import (
	"net/http"
	"strings"

	"snaphomz.org/internal/auth"
	"snaphomz.org/internal/identity"
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
	"/ws/notifications",
	"/",
}

var publicSuffixes = []string{
	"/onboard",
}

// withAuth authenticates every non-public request with a bearer user token.
// The checks run in a fixed order and stop at the first failure; nothing is
// attached to the context unless every step passes.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		header := strings.TrimSpace(r.Header.Get(authHeader))
		if header == "" {
			writeError(w, r, http.StatusBadRequest, "Please provide bearer token in authorization header.")
			return
		}

		token, ok := cutBearer(header)
		if !ok {
			writeError(w, r, http.StatusBadRequest, "Invalid authorization header format.")
			return
		}

		claims := a.codec.DecodeUserToken(token)
		if claims == nil {
			writeError(w, r, http.StatusUnauthorized, "Invalid token. Please login again.")
			return
		}

		user, err := a.resolver.ResolveUser(r.Context(), claims.ID)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "User not found.")
			return
		}

		ac := auth.AuthContext{
			Principal: identity.UserPrincipal(user),
			Role:      identity.AccountType(claims.AccountType),
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithAuth(r.Context(), ac)))
	})
}

func cutBearer(header string) (string, bool) {
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	for _, s := range publicSuffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}
