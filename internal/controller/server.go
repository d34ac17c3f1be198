// Package controller contains the controller-specific logic for the HTTP API.
package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"hirelane/internal/auth"
	"hirelane/internal/controller/handlers"
	"hirelane/internal/controller/middleware"
	"hirelane/internal/jobs"
	"hirelane/internal/store"
	"hirelane/internal/workflow"
)

// Deps are the services the API serves.
type Deps struct {
	DB       handlers.Pinger
	Auth     *auth.Service
	Jobs     *jobs.Service
	Workflow *workflow.Engine
	// Metrics serves /metrics when set.
	Metrics http.Handler
	Logger  *slog.Logger

	// RateLimit is the per-caller request rate per second. Zero disables it.
	RateLimit      float64
	RateLimitBurst int
}

// Server is the HTTP server for the controller API.
type Server struct {
	httpServer *http.Server
}

// Routes builds the API handler with its middleware chain.
func Routes(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	h := handlers.New(d.DB, d.Auth, d.Jobs, d.Workflow, log)
	limit := middleware.NewRateLimiter(middleware.WithLimit(d.RateLimit, d.RateLimitBurst)).Middleware()

	public := func(f http.HandlerFunc) http.Handler {
		return limit(f)
	}
	optional := func(f http.HandlerFunc) http.Handler {
		return middleware.OptionalAuth(d.Auth)(limit(f))
	}
	authed := func(f http.HandlerFunc, roles ...store.Role) http.Handler {
		if len(roles) == 0 {
			roles = []store.Role{store.RoleWorker, store.RoleEmployer, store.RoleAdmin}
		}
		return middleware.Auth(d.Auth)(limit(middleware.RequireRole(roles...)(f)))
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics)
	}

	mux.Handle("POST /auth/otp", public(h.RequestOTP))
	mux.Handle("POST /auth/verify", public(h.VerifyOTP))
	mux.Handle("GET /auth/me", authed(h.Me))
	mux.Handle("POST /auth/logout", authed(h.Logout))

	mux.Handle("GET /jobs", optional(h.SearchJobs))
	mux.Handle("GET /jobs/search", optional(h.SearchJobs))
	mux.Handle("GET /jobs/{id}", optional(h.GetJob))
	mux.Handle("GET /jobs/recommendations", authed(h.RecommendJobs, store.RoleWorker))
	mux.Handle("POST /jobs", authed(h.CreateJob, store.RoleEmployer))
	mux.Handle("PUT /jobs/{id}", authed(h.UpdateJob, store.RoleEmployer))
	mux.Handle("DELETE /jobs/{id}", authed(h.DeleteJob, store.RoleEmployer, store.RoleAdmin))
	mux.Handle("GET /employer/jobs", authed(h.ListEmployerJobs, store.RoleEmployer))
	mux.Handle("GET /employer/jobs/stats", authed(h.JobStats, store.RoleEmployer))

	mux.Handle("POST /jobs/{id}/applications", authed(h.Apply, store.RoleWorker))
	mux.Handle("GET /jobs/{id}/applications", authed(h.ListJobApplications, store.RoleEmployer))
	mux.Handle("GET /me/applications", authed(h.ListMyApplications, store.RoleWorker))
	mux.Handle("GET /applications/{id}", authed(h.GetApplication))
	mux.Handle("POST /applications/{id}/view", authed(h.MarkViewed, store.RoleEmployer))
	mux.Handle("POST /applications/{id}/withdraw", authed(h.Withdraw, store.RoleWorker))
	mux.Handle("PUT /applications/{id}/status", authed(h.UpdateApplicationStatus, store.RoleEmployer))
	mux.Handle("POST /applications/{id}/interview", authed(h.ScheduleInterview, store.RoleEmployer))
	mux.Handle("GET /employer/applications/stats", authed(h.ApplicationStats, store.RoleEmployer))

	mux.Handle("POST /admin/jobs/{id}/reconcile", authed(h.ReconcileJob, store.RoleAdmin))

	return middleware.RequestID(middleware.Logging(log)(mux))
}

// New creates a new controller server.
func New(addr string, d Deps) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      Routes(d),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
