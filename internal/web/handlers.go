// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/garrison-game/garrison/internal/auth"
	"github.com/garrison-game/garrison/internal/game"
	"github.com/garrison-game/garrison/internal/observability"
	"github.com/garrison-game/garrison/internal/timeout"
)

type registerRequest struct {
	Username         string `json:"username"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	ConfirmPassword  string `json:"confirm_password"`
	RecruitmentCycle string `json:"recruitment_cycle"`
	AcceptTerms      bool   `json:"accept_terms"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type checkUsernameRequest struct {
	Username string `json:"username"`
}

type accountPayload struct {
	Name     string `json:"name"`
	Rank     string `json:"rank"`
	Level    int    `json:"level"`
	Progress int    `json:"progress"`
}

type apiResponse struct {
	Success     bool              `json:"success"`
	Message     string            `json:"message,omitempty"`
	Redirect    string            `json:"redirect,omitempty"`
	FieldErrors []auth.FieldError `json:"field_errors,omitempty"`
	Account     *accountPayload   `json:"account,omitempty"`
}

type availabilityResponse struct {
	Available bool `json:"available"`
}

type sessionStatusResponse struct {
	Authenticated    bool            `json:"authenticated"`
	State            string          `json:"state"`
	ExpiresAt        string          `json:"expires_at,omitempty"`
	RemainingSeconds int64           `json:"remaining_seconds,omitempty"`
	Account          *accountPayload `json:"account,omitempty"`
	Redirect         string          `json:"redirect,omitempty"`
}

// sessionState classifies the session lifecycle for the client: still
// comfortably inside the window, inside the warning lead, or expired.
func sessionState(expiresAt time.Time) string {
	return timeout.Classify(expiresAt, time.Now(), timeout.DefaultConfig()).String()
}

func (s *Server) payloadFor(account *auth.Account) *accountPayload {
	return &accountPayload{
		Name:     account.Username,
		Rank:     s.deps.Ranks.RankName(account.RankLevel),
		Level:    account.Level,
		Progress: game.ProgressPercent(s.deps.Ranks, account.RankLevel, account.Experience),
	}
}

// accountFor builds the display payload for the session's account. The
// lookup is best effort: on failure the payload is omitted rather than
// failing an otherwise valid session check.
func (s *Server) accountFor(ctx context.Context, id ulid.ULID) *accountPayload {
	account, err := s.deps.Accounts.GetByID(ctx, id)
	if err != nil {
		s.deps.Logger.Warn("account lookup failed", "account_id", id.String(), "error", err)
		return nil
	}
	return s.payloadFor(account)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, "register", http.StatusBadRequest, apiResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}

	input := auth.RegistrationInput{
		Username:         req.Username,
		Email:            req.Email,
		Password:         req.Password,
		ConfirmPassword:  req.ConfirmPassword,
		RecruitmentCycle: req.RecruitmentCycle,
		AcceptTerms:      req.AcceptTerms,
	}

	account, err := s.deps.Registration.Register(r.Context(), input)
	if err != nil {
		s.registerFailure(w, err)
		return
	}

	s.deps.Availability.Invalidate(account.Username)
	s.deps.Metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	s.writeJSON(w, "register", http.StatusCreated, apiResponse{
		Success:  true,
		Message:  "welcome to the garrison, " + account.Username,
		Redirect: s.cfg.LandingURL,
	})
}

func (s *Server) registerFailure(w http.ResponseWriter, err error) {
	switch {
	case errCode(err) == "REGISTER_VALIDATION":
		s.deps.Metrics.RegistrationsTotal.WithLabelValues("validation_failed").Inc()
		s.writeJSON(w, "register", http.StatusUnprocessableEntity, apiResponse{
			Success:     false,
			Message:     "please correct the highlighted fields",
			FieldErrors: fieldErrorsFrom(err),
		})
	case errors.Is(err, auth.ErrDuplicateAccount):
		s.deps.Metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
		s.writeJSON(w, "register", http.StatusConflict, apiResponse{
			Success: false,
			Message: "that username or email is already enlisted",
		})
	default:
		s.deps.Logger.Error("registration failed", "error", err)
		s.deps.Metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		s.writeJSON(w, "register", http.StatusInternalServerError, apiResponse{
			Success: false,
			Message: "registration failed, please try again",
		})
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, "login", http.StatusBadRequest, apiResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}

	session, token, account, err := s.deps.Auth.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		s.loginFailure(w, err)
		return
	}

	s.setSessionCookie(w, token, session.ExpiresAt)

	if req.RememberMe {
		rememberToken, rememberErr := s.deps.Auth.Remember(r.Context(), account.ID)
		if rememberErr != nil {
			// Persistent login is a convenience; the login itself stands.
			s.deps.Logger.Warn("remember token issue failed", "error", rememberErr)
		} else {
			s.setRememberCookie(w, rememberToken, time.Now().Add(auth.RememberTokenExpiry))
		}
	}

	s.deps.Metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.writeJSON(w, "login", http.StatusOK, apiResponse{
		Success:  true,
		Message:  "reporting for duty",
		Redirect: s.cfg.HomeURL,
		Account:  s.payloadFor(account),
	})
}

// loginFailure keeps rejected credentials and backend faults apart: the
// former get the uniform 401, the latter a generic 500 that leaks nothing
// about the account.
func (s *Server) loginFailure(w http.ResponseWriter, err error) {
	if errCode(err) == "AUTH_INVALID_CREDENTIALS" {
		s.deps.Metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		s.writeJSON(w, "login", http.StatusUnauthorized, apiResponse{
			Success: false,
			Message: "invalid username or password",
		})
		return
	}

	s.deps.Logger.Error("login failed", "error", err)
	s.deps.Metrics.LoginsTotal.WithLabelValues("error").Inc()
	s.writeJSON(w, "login", http.StatusInternalServerError, apiResponse{
		Success: false,
		Message: "login failed, please try again",
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sessionToken := cookieValue(r, SessionCookieName)
	rememberToken := cookieValue(r, RememberCookieName)

	s.deps.Auth.Logout(r.Context(), sessionToken, rememberToken)

	s.clearCookie(w, SessionCookieName)
	s.clearCookie(w, RememberCookieName)
	s.deps.Metrics.LogoutsTotal.Inc()

	s.writeJSON(w, "logout", http.StatusOK, apiResponse{
		Success:  true,
		Redirect: s.cfg.LandingURL,
	})
}

func (s *Server) handleCheckUsername(w http.ResponseWriter, r *http.Request) {
	var req checkUsernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, "check-username", http.StatusBadRequest, apiResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}

	// A name that fails validation or is reserved can never be registered,
	// so report it as unavailable without consulting the store.
	if err := auth.ValidateUsername(req.Username); err != nil || auth.IsReservedUsername(req.Username) {
		s.deps.Metrics.UsernameChecksTotal.WithLabelValues("invalid").Inc()
		s.writeJSON(w, "check-username", http.StatusOK, availabilityResponse{Available: false})
		return
	}

	available := s.deps.Availability.Check(r.Context(), req.Username)
	if available {
		s.deps.Metrics.UsernameChecksTotal.WithLabelValues("available").Inc()
	} else {
		s.deps.Metrics.UsernameChecksTotal.WithLabelValues("taken").Inc()
	}
	s.writeJSON(w, "check-username", http.StatusOK, availabilityResponse{Available: available})
}

func (s *Server) handleExtendSession(w http.ResponseWriter, r *http.Request) {
	token := cookieValue(r, SessionCookieName)
	session, err := s.deps.Auth.ExtendSession(r.Context(), token)
	if err != nil {
		s.expireClientSession(w, "extend-session")
		return
	}

	s.setSessionCookie(w, token, session.ExpiresAt)
	s.deps.Metrics.SessionExtensionsTotal.Inc()
	s.writeJSON(w, "extend-session", http.StatusOK, sessionStatusResponse{
		Authenticated:    true,
		State:            sessionState(session.ExpiresAt),
		ExpiresAt:        session.ExpiresAt.UTC().Format(time.RFC3339),
		RemainingSeconds: remainingSeconds(session.ExpiresAt),
	})
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	token := cookieValue(r, SessionCookieName)
	session, err := s.deps.Auth.ValidateSession(r.Context(), token)
	if err == nil {
		s.writeJSON(w, "session-status", http.StatusOK, sessionStatusResponse{
			Authenticated:    true,
			State:            sessionState(session.ExpiresAt),
			ExpiresAt:        session.ExpiresAt.UTC().Format(time.RFC3339),
			RemainingSeconds: remainingSeconds(session.ExpiresAt),
			Account:          s.accountFor(r.Context(), session.AccountID),
		})
		return
	}

	// The session is gone; a remember token can still restore it.
	if rememberToken := cookieValue(r, RememberCookieName); rememberToken != "" {
		newSession, sessionToken, newRememberToken, redeemErr := s.deps.Auth.RedeemRemember(r.Context(), rememberToken)
		if redeemErr == nil {
			s.setSessionCookie(w, sessionToken, newSession.ExpiresAt)
			s.setRememberCookie(w, newRememberToken, time.Now().Add(auth.RememberTokenExpiry))
			s.deps.Metrics.LoginsTotal.WithLabelValues("remembered").Inc()
			s.writeJSON(w, "session-status", http.StatusOK, sessionStatusResponse{
				Authenticated:    true,
				State:            sessionState(newSession.ExpiresAt),
				ExpiresAt:        newSession.ExpiresAt.UTC().Format(time.RFC3339),
				RemainingSeconds: remainingSeconds(newSession.ExpiresAt),
				Account:          s.accountFor(r.Context(), newSession.AccountID),
			})
			return
		}
	}

	s.expireClientSession(w, "session-status")
}

// expireClientSession clears both auth cookies and tells the client to
// return to the anonymous landing page.
func (s *Server) expireClientSession(w http.ResponseWriter, endpoint string) {
	s.clearCookie(w, SessionCookieName)
	s.clearCookie(w, RememberCookieName)
	s.writeJSON(w, endpoint, http.StatusUnauthorized, sessionStatusResponse{
		Authenticated: false,
		State:         timeout.StateAnonymous.String(),
		Redirect:      s.cfg.LandingURL,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, endpoint string, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		observability.RecordResponseWriteFailure(endpoint)
		s.deps.Logger.Warn("response write failed", "endpoint", endpoint, "error", err)
	}
}

func remainingSeconds(expiresAt time.Time) int64 {
	remaining := time.Until(expiresAt)
	if remaining < 0 {
		return 0
	}
	return int64(remaining.Seconds())
}

// errCode returns the oops code attached to err, or "".
func errCode(err error) string {
	var oopsErr oops.OopsError
	if errors.As(err, &oopsErr) {
		if code, ok := oopsErr.Code().(string); ok {
			return code
		}
	}
	return ""
}

// fieldErrorsFrom extracts the structured field errors a validation
// failure carries in its context.
func fieldErrorsFrom(err error) []auth.FieldError {
	var oopsErr oops.OopsError
	if !errors.As(err, &oopsErr) {
		return nil
	}
	fieldErrs, ok := oopsErr.Context()["field_errors"].([]auth.FieldError)
	if !ok {
		return nil
	}
	return fieldErrs
}
