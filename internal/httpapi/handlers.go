package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	apartments "github.com/khaledahmed0918-sys/Apartments"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// registerRequest and forgotPasswordRequest accept the handle of an earlier
// attempt in replaces. It is discarded once the new code is sent.
type registerRequest struct {
	Name     []string           `json:"name" validate:"required,min=1,max=16,dive,required"`
	Email    string             `json:"email" validate:"required"`
	Password string             `json:"password" validate:"required"`
	Replaces apartments.Pending `json:"replaces"`
}

type verifyRequest struct {
	Pending apartments.Pending `json:"pending"`
	Code    string             `json:"code" validate:"required"`
}

type forgotPasswordRequest struct {
	Email    string             `json:"email" validate:"required"`
	Replaces apartments.Pending `json:"replaces"`
}

type resetPasswordRequest struct {
	Pending     apartments.Pending `json:"pending"`
	Code        string             `json:"code" validate:"required"`
	NewPassword string             `json:"new_password" validate:"required"`
}

type clientTokenResponse struct {
	Token     string    `json:"token"`
	ClientID  string    `json:"client_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type healthResponse struct {
	Redis string `json:"redis"`
}

func newClientID() string {
	return uuid.NewString()
}

func (s *server) handleIssueClient(w http.ResponseWriter, r *http.Request) {
	clientID := s.newClientID()
	token, exp, err := s.tokens.Issue(clientID)
	if err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	s.writeResult(w, r, nil, clientTokenResponse{Token: token, ClientID: clientID, ExpiresAt: exp})
}

// discard drops a superseded handle. The new code is already out, so a
// failure here is only logged.
func (s *server) discard(r *http.Request, old apartments.Pending) {
	if old.IsZero() {
		return
	}
	if err := s.svc.DiscardPending(r.Context(), old); err != nil {
		s.logger.WarnContext(r.Context(), "discard superseded verification failed",
			slog.String("error", err.Error()),
		)
	}
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	user, err := s.svc.Login(r.Context(), req.Email, req.Password)
	s.writeResult(w, r, err, user)
}

func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	p, err := s.svc.BeginRegistration(r.Context(), apartments.RegistrationRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err == nil {
		s.discard(r, req.Replaces)
	}
	s.writeResult(w, r, err, p)
}

func (s *server) handleRegisterVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	user, err := s.svc.CompleteRegistration(r.Context(), req.Pending, req.Code)
	s.writeResult(w, r, err, user)
}

func (s *server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	p, err := s.svc.BeginPasswordReset(r.Context(), req.Email)
	if err == nil {
		s.discard(r, req.Replaces)
	}
	s.writeResult(w, r, err, p)
}

func (s *server) handleVerifyResetCode(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	err := s.svc.ConfirmResetCode(r.Context(), req.Pending, req.Code)
	s.writeResult(w, r, err, nil)
}

func (s *server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	user, err := s.svc.FinalizeReset(r.Context(), req.Pending, req.Code, req.NewPassword)
	s.writeResult(w, r, err, user)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, r, s.svc.Logout(r.Context()), nil)
}

// handleSession reports the stored session. A missing or unreadable session
// is a 404, never an error.
func (s *server) handleSession(w http.ResponseWriter, r *http.Request) {
	user, ok := s.svc.RestoreSession(r.Context())
	if !ok {
		s.writeResult(w, r, apartments.ErrNotFound, nil)
		return
	}
	s.writeResult(w, r, nil, user)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	latency, err := s.svc.Ping(r.Context())
	if err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	s.writeResult(w, r, nil, healthResponse{Redis: latency.String()})
}
