package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/identikit/identikit/auth"
	"github.com/identikit/identikit/pkg/clientip"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"

	refreshHeader    = "x-refresh-token"
	newAccessHeader  = "X-New-Access-Token"
	newRefreshHeader = "X-New-Refresh-Token"
)

// extractAccess reads the access token from the Authorization header
// or the access_token cookie, header first.
func extractAccess(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(accessCookie); err == nil {
		return c.Value
	}
	return ""
}

// extractRefresh reads the refresh token from the x-refresh-token
// header or the refresh_token cookie, header first.
func extractRefresh(r *http.Request) string {
	if h := r.Header.Get(refreshHeader); h != "" {
		return strings.TrimSpace(h)
	}
	if c, err := r.Cookie(refreshCookie); err == nil {
		return c.Value
	}
	return ""
}

// clientInfo captures the requesting device and origin for session
// records.
func clientInfo(r *http.Request) auth.ClientInfo {
	return auth.ClientInfo{
		Device: r.UserAgent(),
		IP:     clientip.FromRequest(r),
	}
}

// cookieWriter attaches and clears credential cookies with consistent
// attributes.
type cookieWriter struct {
	accessTTL  time.Duration
	refreshTTL time.Duration
	secure     bool
}

func (cw cookieWriter) set(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   cw.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (cw cookieWriter) setAccess(w http.ResponseWriter, token string) {
	cw.set(w, accessCookie, token, cw.accessTTL)
}

func (cw cookieWriter) setRefresh(w http.ResponseWriter, token string) {
	cw.set(w, refreshCookie, token, cw.refreshTTL)
}

// setPair attaches both credentials after login or registration.
func (cw cookieWriter) setPair(w http.ResponseWriter, pair auth.TokenPair) {
	cw.setAccess(w, pair.Access)
	cw.setRefresh(w, pair.Refresh)
}

// clear expires both credential cookies.
func (cw cookieWriter) clear(w http.ResponseWriter) {
	for _, name := range []string{accessCookie, refreshCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   cw.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// applyRotation surfaces rotated credentials through both headers and
// cookies so any client style can pick them up.
func (cw cookieWriter) applyRotation(w http.ResponseWriter, d auth.Decision) {
	if d.NewAccess != "" {
		w.Header().Set(newAccessHeader, d.NewAccess)
		cw.setAccess(w, d.NewAccess)
	}
	if d.NewRefresh != "" {
		w.Header().Set(newRefreshHeader, d.NewRefresh)
		cw.setRefresh(w, d.NewRefresh)
	}
}
