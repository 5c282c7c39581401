// Package httpapi exposes the authentication engine over HTTP. Every
// response body is an apartments.Result.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	apartments "github.com/khaledahmed0918-sys/Apartments"
	"github.com/khaledahmed0918-sys/Apartments/internal/clienttoken"
	"github.com/prometheus/client_golang/prometheus"
)

// Service is the part of *apartments.Engine the HTTP surface drives.
type Service interface {
	Login(ctx context.Context, email, password string) (apartments.SessionUser, error)
	BeginRegistration(ctx context.Context, req apartments.RegistrationRequest) (apartments.Pending, error)
	CompleteRegistration(ctx context.Context, p apartments.Pending, code string) (apartments.SessionUser, error)
	BeginPasswordReset(ctx context.Context, email string) (apartments.Pending, error)
	ConfirmResetCode(ctx context.Context, p apartments.Pending, code string) error
	FinalizeReset(ctx context.Context, p apartments.Pending, code, newPassword string) (apartments.SessionUser, error)
	DiscardPending(ctx context.Context, p apartments.Pending) error
	Logout(ctx context.Context) error
	RestoreSession(ctx context.Context) (apartments.SessionUser, bool)
	Ping(ctx context.Context) (time.Duration, error)
}

// Deps holds what the router needs. Metrics and Registerer are optional.
type Deps struct {
	Service Service
	Tokens  *clienttoken.Manager

	// Metrics is mounted at GET /metrics when set.
	Metrics    http.Handler
	// Registerer receives the HTTP request metrics when set.
	Registerer prometheus.Registerer

	Logger      *slog.Logger
	// NewClientID defaults to a random UUID.
	NewClientID func() string
}

type server struct {
	svc         Service
	tokens      *clienttoken.Manager
	validate    *validator.Validate
	logger      *slog.Logger
	newClientID func() string
}

// NewRouter wires the auth routes.
func NewRouter(deps Deps) (http.Handler, error) {
	if deps.Service == nil {
		return nil, errors.New("httpapi: service required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("httpapi: token manager required")
	}

	s := &server{
		svc:         deps.Service,
		tokens:      deps.Tokens,
		validate:    newValidator(),
		logger:      deps.Logger,
		newClientID: deps.NewClientID,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.newClientID == nil {
		s.newClientID = newClientID
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.recovery)
	r.Use(s.requestLogging)

	if deps.Registerer != nil {
		m, err := newHTTPMetrics(deps.Registerer)
		if err != nil {
			return nil, err
		}
		r.Use(m.middleware)
	}

	r.Get("/healthz", s.handleHealth)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/client", s.handleIssueClient)

		r.Group(func(r chi.Router) {
			r.Use(s.clientAuth)

			r.Post("/login", s.handleLogin)
			r.Post("/register", s.handleRegister)
			r.Post("/register/verify", s.handleRegisterVerify)
			r.Post("/password/forgot", s.handleForgotPassword)
			r.Post("/password/verify", s.handleVerifyResetCode)
			r.Post("/password/reset", s.handleResetPassword)
			r.Post("/logout", s.handleLogout)
			r.Get("/session", s.handleSession)
		})
	})

	return r, nil
}
