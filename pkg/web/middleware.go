package web

import (
	"context"
	"crypto/subtle"
	"net/http"
)

type contextKey string

const userKey contextKey = "user"

// UserFromContext yields the authenticated username of a request, when set
func UserFromContext(ctx context.Context) string {
	user, _ := ctx.Value(userKey).(string)
	return user
}

// RequireUser rejects requests without an identity header. The header is
// trusted as-is: the authenticating proxy in front of this service owns
// credential checking.
func (srv *Server) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.Header.Get(IdentityHeader)
		if user == "" {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

// RequireAdmin rejects requests without the shared admin token. When no
// token is configured the admin surface is disabled outright.
func (srv *Server) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(AdminTokenHeader)
		if srv.adminToken == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(srv.adminToken)) != 1 {
			respondError(w, http.StatusForbidden, "Admin privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
