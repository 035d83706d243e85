// Package middleware provides HTTP middleware for the admin endpoints.
package middleware

import (
	"net/http"
)

// AdminTokenHeader carries the shared admin secret.
const AdminTokenHeader = "X-Admin-Token"

// TokenVerifier checks an admin credential. *config.AdminAuth implements it.
type TokenVerifier interface {
	Verify(token string) bool
}

// RequireAdmin rejects requests whose X-Admin-Token does not verify. The
// response is the same for a missing and a wrong token. denied, if not nil,
// is called for each rejection.
func RequireAdmin(verifier TokenVerifier, denied func(r *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !verifier.Verify(r.Header.Get(AdminTokenHeader)) {
				if denied != nil {
					denied(r)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
