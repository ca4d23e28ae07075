package middleware

import (
	"net/http"
	"strings"

	"github.com/dop-amin/foosball-tracker/services"
)

// RequireAdmin guards the corrective endpoints: match edits, deletes and
// full recalculation. Expects "Authorization: Bearer <token>".
func RequireAdmin(auth services.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if _, err := auth.VerifyToken(token); err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
