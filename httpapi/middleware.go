package httpapi

import (
	"net/http"
	"time"

	"github.com/identikit/identikit/auth"
	"github.com/identikit/identikit/pkg/roles"
)

// RequireAuth runs the verification guard and applies its decision:
// rejected requests get a 401 with cleared cookies, rotations surface
// their new credentials, and authorized claims land in the request
// context for handlers downstream.
func (s *Server) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refresh := extractRefresh(r)
		decision := s.guard.Check(r.Context(), auth.Presented{
			Access:  extractAccess(r),
			Refresh: refresh,
			Client:  clientInfo(r),
		}, time.Now())

		if !decision.Authorized() {
			s.cookies.clear(w)
			writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "unauthorized"})
			return
		}

		if decision.Outcome == auth.DecisionAuthorizeAndRotate {
			s.cookies.applyRotation(w, decision)
			if decision.NewRefresh != "" {
				// The presented token's session is already retired; the
				// replacement is the one a downstream revocation must hit.
				refresh = decision.NewRefresh
			}
		}

		ctx := withClaims(r.Context(), decision.Claims)
		ctx = withRefreshToken(ctx, refresh)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole allows the request only when the authenticated role is
// in the required set. Must run after RequireAuth.
func RequireRole(required ...roles.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok || !roles.Allowed(required, claims.Role) {
				writeJSON(w, http.StatusForbidden, envelope{Success: false, Message: "forbidden"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
