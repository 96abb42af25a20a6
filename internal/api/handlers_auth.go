package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"finance_tracker/internal/identity"

	"go.uber.org/zap"
)

const oauthStateCookie = "finance_oauth_state"

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Email    string `json:"email"`
	Code     string `json:"code,omitempty"`
	Password string `json:"password,omitempty"`
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadBody)
		}
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}

func (h *handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	session, err := h.identity.SignUp(r.Context(), req.Name, req.Email, req.Password)
	h.metrics.RecordAuth("signup", authResult(err))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rec, ok := w.(*statusRecorder); ok {
		rec.userID = session.User.ID
	}
	writeJSON(w, r, http.StatusCreated, session)
}

func (h *handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	session, err := h.identity.SignIn(r.Context(), req.Email, req.Password)
	h.metrics.RecordAuth("signin", authResult(err))
	if err != nil {
		if errorBody(err).Status == http.StatusUnauthorized {
			h.rateLimiter.RecordFailure(r.RemoteAddr)
		}
		writeError(w, r, err)
		return
	}
	h.rateLimiter.ResetFailures(r.RemoteAddr)
	if rec, ok := w.(*statusRecorder); ok {
		rec.userID = session.User.ID
	}
	writeJSON(w, r, http.StatusOK, session)
}

func (h *handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		writeError(w, r, errUnauthorized)
		return
	}
	user, err := h.identity.Authenticate(token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	err = h.identity.SignOut(token)
	h.metrics.RecordAuth("signout", authResult(err))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.tracker.OnSignOut(user.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleMe(w http.ResponseWriter, r *http.Request, user identity.User) {
	writeJSON(w, r, http.StatusOK, user)
}

func (h *handler) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	err := h.identity.RequestPasswordReset(r.Context(), req.Email)
	h.metrics.RecordAuth("reset_request", authResult(err))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, map[string]bool{"sent": true})
}

func (h *handler) handleResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	err := h.identity.ConfirmPasswordReset(r.Context(), req.Email, req.Code, req.Password)
	h.metrics.RecordAuth("reset_confirm", authResult(err))
	if err != nil {
		if identity.IsCode(err, identity.CodeInvalidResetCode) {
			h.rateLimiter.RecordFailure(r.RemoteAddr)
		}
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.identity.GoogleEnabled() {
		writeError(w, r, fmt.Errorf("google sign-in: %w", errNotConfigured))
		return
	}
	state := NewRequestID()
	url, err := h.identity.GoogleAuthURL(state)
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *handler) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if !h.identity.GoogleEnabled() {
		writeError(w, r, fmt.Errorf("google sign-in: %w", errNotConfigured))
		return
	}
	cookie, err := r.Cookie(oauthStateCookie)
	state := r.URL.Query().Get("state")
	if err != nil || cookie.Value == "" || cookie.Value != state {
		h.metrics.RecordAuth("google", "bad_state")
		h.rateLimiter.RecordFailure(r.RemoteAddr)
		writeError(w, r, fmt.Errorf("%w: oauth state mismatch", errBadBody))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/auth/google", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, r, fmt.Errorf("%w: missing code", errBadBody))
		return
	}
	session, err := h.identity.GoogleExchange(r.Context(), code)
	h.metrics.RecordAuth("google", authResult(err))
	if err != nil {
		zap.L().Warn("google exchange failed", zap.String("request_id", requestIDFrom(r.Context())), zap.Error(err))
		writeError(w, r, err)
		return
	}
	if rec, ok := w.(*statusRecorder); ok {
		rec.userID = session.User.ID
	}
	writeJSON(w, r, http.StatusOK, session)
}
