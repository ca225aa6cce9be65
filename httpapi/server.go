package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/identikit/identikit/auth"
	"github.com/identikit/identikit/pkg/credential"
	"github.com/identikit/identikit/pkg/logger"
	"github.com/identikit/identikit/provider"
)

// Config holds HTTP boundary settings.
type Config struct {
	Addr        string `env:"HTTP_ADDR" envDefault:":8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// Server wires the auth services to their HTTP surface.
type Server struct {
	service   *auth.Service
	linker    *auth.Linker
	guard     *auth.Guard
	providers map[string]provider.Provider
	cookies   cookieWriter
	health    []func(r *http.Request) error
	log       *slog.Logger
}

// ServerOption configures a Server during construction.
type ServerOption func(*Server)

// WithProvider registers an identity provider for social login.
func WithProvider(p provider.Provider) ServerOption {
	return func(s *Server) { s.providers[p.Name()] = p }
}

// WithServerLogger sets the server's logger.
func WithServerLogger(log *slog.Logger) ServerOption {
	return func(s *Server) { s.log = log }
}

// WithHealthcheck adds a readiness probe run by the health endpoint.
func WithHealthcheck(probe func(*http.Request) error) ServerOption {
	return func(s *Server) { s.health = append(s.health, probe) }
}

// NewServer creates the HTTP boundary.
func NewServer(cfg Config, service *auth.Service, linker *auth.Linker, guard *auth.Guard, codec *credential.Codec, opts ...ServerOption) *Server {
	s := &Server{
		service:   service,
		linker:    linker,
		guard:     guard,
		providers: make(map[string]provider.Provider),
		cookies: cookieWriter{
			accessTTL:  codec.AccessTTL(),
			refreshTTL: codec.RefreshTTL(),
			secure:     cfg.Environment == "production",
		},
		log: logger.NewDiscard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/social/{provider}", s.handleSocialLogin)
		r.Post("/verify-email", s.handleVerifyEmail)
		r.Post("/resend-verification-otp", s.handleResendVerificationOTP)
		r.Post("/forgot-password", s.handleForgotPassword)
		r.Post("/verify-reset-otp", s.handleVerifyResetOTP)
		r.Post("/reset-password", s.handleResetPassword)
		r.Post("/resend-reset-otp", s.handleResendResetOTP)
		r.Post("/forgot-username", s.handleForgotUsername)

		r.Group(func(r chi.Router) {
			r.Use(s.RequireAuth)
			r.Post("/change-password", s.handleChangePassword)
			r.Post("/logout", s.handleLogout)
			r.Post("/logout-all", s.handleLogoutAll)
		})
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(s.RequireAuth)
		r.Get("/me", s.handleMe)
		r.Patch("/me", s.handleUpdateProfile)
		r.Put("/me/avatar", s.handleUpdateAvatar)
		r.Get("/check-username", s.handleCheckUsername)
		r.Put("/me/username", s.handleUpdateUsername)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Use(s.RequireAuth)
		r.Get("/", s.handleSessions)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	for _, probe := range s.health {
		if err := probe(r); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, envelope{Success: false, Message: "unavailable"})
			return
		}
	}
	writeOK(w, "ok", nil)
}
