package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hackgods/appointment-booking/internal/account"
	"github.com/hackgods/appointment-booking/internal/appointment"
	"github.com/hackgods/appointment-booking/internal/auth"
	"github.com/hackgods/appointment-booking/internal/logger"
	"github.com/hackgods/appointment-booking/internal/slot"
	"github.com/hackgods/appointment-booking/internal/validation"
)

type RouterConfig struct {
	Slots        *slot.Service
	Appointments *appointment.Service
	Accounts     *account.Service
	Tokens       *auth.Tokens
	Validator    *validation.Validator
	Log          *logger.Logger

	Checks []Check
	Env    string
	// Version is reported by the health endpoints.
	Version string

	RequestTimeout time.Duration
	// AuthLimiter throttles register and login. Nil disables it.
	AuthLimiter *RateLimiter
}

func NewRouter(cfg RouterConfig) http.Handler {
	h := &handlers{
		slots:        cfg.Slots,
		appointments: cfg.Appointments,
		accounts:     cfg.Accounts,
		validate:     cfg.Validator,
		log:          cfg.Log,
	}

	r := chi.NewRouter()

	// RemoteAddr stays the socket peer; the auth limiter keys on it.
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(RequestDeadline(cfg.RequestTimeout))
	}

	health := NewHealthHandler(cfg.Checks, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/auth", func(r chi.Router) {
		if cfg.AuthLimiter != nil {
			r.Use(cfg.AuthLimiter.Middleware)
		}
		r.Post("/register", h.register)
		r.Post("/login", h.login)
	})

	authenticate := Authenticate(cfg.Tokens, cfg.Log)
	providerOnly := RequireProvider(cfg.Log)

	r.With(authenticate).Get("/users/me", h.me)

	r.Route("/time-slot", func(r chi.Router) {
		r.Get("/available", h.availableSlots)

		r.Group(func(r chi.Router) {
			r.Use(authenticate, providerOnly)
			r.Post("/create", h.createSlot)
			r.Get("/view", h.viewSlots)
			r.Put("/update", h.updateSlot)
			r.Delete("/delete/{id}", h.deleteSlot)
		})
	})

	r.Route("/appointments", func(r chi.Router) {
		r.Use(authenticate)
		r.Post("/book", h.book)
		r.Get("/my", h.myAppointments)
		r.Get("/provider", h.providerAppointments)
		r.Get("/{appointmentId}", h.getAppointment)
		r.Patch("/{appointmentId}/cancel", h.cancelAppointment)

		r.With(providerOnly).Patch("/{appointmentId}/confirm", h.confirmAppointment)
		r.With(providerOnly).Patch("/{appointmentId}/complete", h.completeAppointment)
	})

	return r
}

// Serve runs srv until ctx is done, then drains in-flight requests for up
// to shutdownTimeout.
func Serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
