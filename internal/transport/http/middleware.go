package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"proctored-quiz-service/internal/auth"
	"proctored-quiz-service/internal/domain"
)

type claimsKey struct{}

// TokenParser verifies bearer tokens.
type TokenParser interface {
	Parse(raw string) (auth.Claims, error)
}

func claimsFrom(ctx context.Context) (auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(auth.Claims)
	return claims, ok
}

// bearerToken reads "Authorization: Bearer <jwt>", falling back to the token query
// parameter because browsers cannot set headers on websocket upgrades.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// requireAuth rejects requests without a valid token. A non-empty role also restricts the route to that role.
func requireAuth(tokens TokenParser, role domain.Role, log logrus.FieldLogger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			writeError(w, log, auth.ErrInvalidToken)
			return
		}
		claims, err := tokens.Parse(raw)
		if err != nil {
			writeError(w, log, err)
			return
		}
		if role != "" && claims.Role != role {
			writeError(w, log, domain.ErrForbidden)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	}
}
