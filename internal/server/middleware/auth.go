package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/gosuda/taskboard/internal/auth"
)

// Auth validates the caller's access token and stores the identity in the
// request context. Browsers cannot set headers on websocket upgrades, so the
// token is also accepted from the access_token query parameter.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := extractBearer(r)
			if tok == "" {
				tok = r.URL.Query().Get("access_token")
			}
			if tok != "" {
				if claims, err := auth.ValidateAccessToken(jwtSecret, tok); err == nil {
					teamID, teamErr := uuid.Parse(claims.TeamID)
					userID, userErr := uuid.Parse(claims.UserID)
					if teamErr == nil && userErr == nil {
						ctx := WithIdentity(r.Context(), teamID, userID, claims.Role)
						next.ServeHTTP(w, r.WithContext(ctx))
						return
					}
				}
			}

			http.Error(w, `{"title":"Unauthorized","status":401,"detail":"missing or invalid credentials"}`, http.StatusUnauthorized)
		})
	}
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return h[7:]
	}
	return ""
}
