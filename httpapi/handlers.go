package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/identikit/identikit/auth"
	"github.com/identikit/identikit/pkg/logger"
)

// maxAvatarBytes caps avatar uploads.
const maxAvatarBytes = 5 << 20

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// authPayload is the response body for every flow that signs the
// client in.
type authPayload struct {
	User         auth.Profile `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var params auth.RegisterParams
	if err := decodeBody(r, &params); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	if params.Email == "" || params.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	user, err := s.service.Register(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCreated(w, "account created", user.Profile())
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var params auth.LoginParams
	if err := decodeBody(r, &params); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}

	user, pair, err := s.service.Login(r.Context(), params, clientInfo(r))
	if err != nil {
		writeError(w, err)
		return
	}

	s.cookies.setPair(w, pair)
	writeOK(w, "logged in", authPayload{
		User:         user.Profile(),
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
	})
}

func (s *Server) handleSocialLogin(w http.ResponseWriter, r *http.Request) {
	p, ok := s.providers[chi.URLParam(r, "provider")]
	if !ok {
		writeBadRequest(w, "unknown provider")
		return
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := decodeBody(r, &body); err != nil || body.Token == "" {
		writeBadRequest(w, "provider token is required")
		return
	}

	user, pair, res, err := s.linker.Login(r.Context(), p, body.Token, clientInfo(r))
	if err != nil {
		writeError(w, err)
		return
	}

	message := "logged in"
	switch res {
	case auth.ResolutionCreated:
		message = "account created"
	case auth.ResolutionLinked:
		message = "account linked"
	}

	s.cookies.setPair(w, pair)
	writeOK(w, message, authPayload{
		User:         user.Profile(),
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	// The guard may have rotated on the way in; the context token is the
	// session actually alive for this request, not the presented one.
	refresh := refreshTokenFromContext(r.Context())
	if refresh == "" {
		refresh = extractRefresh(r)
	}
	if refresh != "" {
		if err := s.service.Logout(r.Context(), refresh); err != nil {
			writeError(w, err)
			return
		}
	}

	// Drop rotation artifacts: they would hand the client a live
	// replacement for the session just revoked.
	w.Header().Del(newAccessHeader)
	w.Header().Del(newRefreshHeader)
	w.Header().Del("Set-Cookie")
	s.cookies.clear(w)
	writeOK(w, "logged out", nil)
}

func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, auth.ErrUnauthorized)
		return
	}
	if err := s.service.LogoutAll(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	s.cookies.clear(w)
	writeOK(w, "all sessions revoked", nil)
}

type emailBody struct {
	Email string `json:"email"`
}

type emailOTPBody struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var body emailOTPBody
	if err := decodeBody(r, &body); err != nil || body.Email == "" || body.OTP == "" {
		writeBadRequest(w, "email and otp are required")
		return
	}
	if err := s.service.VerifyEmail(r.Context(), body.Email, body.OTP); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "email verified", nil)
}

func (s *Server) handleResendVerificationOTP(w http.ResponseWriter, r *http.Request) {
	var body emailBody
	if err := decodeBody(r, &body); err != nil || body.Email == "" {
		writeBadRequest(w, "email is required")
		return
	}
	if err := s.service.ResendVerificationOTP(r.Context(), body.Email); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "verification code sent", nil)
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var body emailBody
	if err := decodeBody(r, &body); err != nil || body.Email == "" {
		writeBadRequest(w, "email is required")
		return
	}
	if err := s.service.ForgotPassword(r.Context(), body.Email); err != nil {
		s.log.Error("forgot password failed", logger.Error(err))
	}
	// Deliberately identical for known and unknown addresses.
	writeOK(w, "if the address exists, a reset code was sent", nil)
}

func (s *Server) handleResendResetOTP(w http.ResponseWriter, r *http.Request) {
	s.handleForgotPassword(w, r)
}

func (s *Server) handleVerifyResetOTP(w http.ResponseWriter, r *http.Request) {
	var body emailOTPBody
	if err := decodeBody(r, &body); err != nil || body.Email == "" || body.OTP == "" {
		writeBadRequest(w, "email and otp are required")
		return
	}
	if err := s.service.VerifyResetOTP(r.Context(), body.Email, body.OTP); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "code verified, you may reset your password", nil)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email       string `json:"email"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeBody(r, &body); err != nil || body.Email == "" || body.NewPassword == "" {
		writeBadRequest(w, "email and new_password are required")
		return
	}
	if err := s.service.ResetPassword(r.Context(), body.Email, body.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "password reset, please log in again", nil)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, auth.ErrUnauthorized)
		return
	}

	var body struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeBody(r, &body); err != nil || body.CurrentPassword == "" || body.NewPassword == "" {
		writeBadRequest(w, "current_password and new_password are required")
		return
	}
	if err := s.service.ChangePassword(r.Context(), userID, body.CurrentPassword, body.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "password changed", nil)
}

func (s *Server) handleForgotUsername(w http.ResponseWriter, r *http.Request) {
	var body emailBody
	if err := decodeBody(r, &body); err != nil || body.Email == "" {
		writeBadRequest(w, "email is required")
		return
	}
	if err := s.service.ForgotUsername(r.Context(), body.Email); err != nil {
		s.log.Error("forgot username failed", logger.Error(err))
	}
	writeOK(w, "if the address exists, a reminder was sent", nil)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, auth.ErrUnauthorized)
		return
	}
	profile, err := s.service.Me(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "", profile)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, auth.ErrUnauthorized)
		return
	}

	var params auth.UpdateProfileParams
	if err := decodeBody(r, &params); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	profile, err := s.service.UpdateProfile(r.Context(), userID, params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "profile updated", profile)
}

func (s *Server) handleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, auth.ErrUnauthorized)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxAvatarBytes+1))
	if err != nil || len(data) == 0 {
		writeBadRequest(w, "avatar image body is required")
		return
	}
	if len(data) > maxAvatarBytes {
		writeBadRequest(w, "avatar image too large")
		return
	}
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	profile, err := s.service.UpdateAvatar(r.Context(), userID, data, contentType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "avatar updated", profile)
}

func (s *Server) handleCheckUsername(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, auth.ErrUnauthorized)
		return
	}

	username := r.URL.Query().Get("username")
	if username == "" {
		writeBadRequest(w, "username query parameter is required")
		return
	}
	available, err := s.service.CheckUsername(r.Context(), userID, username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "", map[string]bool{"available": available})
}

func (s *Server) handleUpdateUsername(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, auth.ErrUnauthorized)
		return
	}

	var body struct {
		Username string `json:"username"`
	}
	if err := decodeBody(r, &body); err != nil || body.Username == "" {
		writeBadRequest(w, "username is required")
		return
	}
	profile, err := s.service.UpdateUsername(r.Context(), userID, body.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "username updated", profile)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, auth.ErrUnauthorized)
		return
	}
	sessions, err := s.service.Sessions(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "", sessions)
}
