package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"household/internal/auth"
	"household/internal/insight"
	applog "household/internal/log"
	"household/internal/metrics"
	authmw "household/internal/middleware/auth"
	"household/internal/middleware/ratelimit"
	"household/internal/middleware/security"
	"household/internal/middleware/trace"
	"household/internal/services"
	"household/internal/storage"
)

// Deps are the collaborators the handlers call into. Metrics is optional.
type Deps struct {
	Store        storage.Store
	Auth         *auth.Authenticator
	Tasks        *services.TaskService
	Goals        *services.GoalService
	Transactions *services.TransactionService
	Dashboard    *services.DashboardService
	Insights     *insight.Service
	Metrics      *metrics.Metrics
	Logger       *applog.Logger
}

// Options tunes the edge middleware.
type Options struct {
	RateLimitRPS   int
	RateLimitBurst int
	TrustedProxies []string
}

type Server struct {
	http.Server

	store        storage.Store
	auth         *auth.Authenticator
	tasks        *services.TaskService
	goals        *services.GoalService
	transactions *services.TransactionService
	dashboard    *services.DashboardService
	insights     *insight.Service
	logger       *applog.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	started  time.Time
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps, opts Options) (*Server, error) {
	detector, err := security.NewDetector(opts.TrustedProxies)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	s := &Server{
		store:        deps.Store,
		auth:         deps.Auth,
		tasks:        deps.Tasks,
		goals:        deps.Goals,
		transactions: deps.Transactions,
		dashboard:    deps.Dashboard,
		insights:     deps.Insights,
		logger:       logger.WithComponent(applog.ComponentHTTP),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerSecond: opts.RateLimitRPS,
			Burst:             opts.RateLimitBurst,
		}),
		detector: detector,
		started:  time.Now(),
		now:      time.Now,
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(deps.Metrics),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	return s, nil
}

func (s *Server) routes(m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(trace.NewMiddleware(s.logger, s.detector.ExtractClientIP).Middleware)
	r.Use(applog.Middleware(s.logger, trace.GetRequestID))
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.detector.Middleware)
	if m != nil {
		r.Use(m.Middleware)
	}

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleMethodNotAllowed)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited))

		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireAuth(s.auth, s.onAuthFailed))

			r.Get("/auth/me", s.handleMe)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", s.handleListUsers)
				r.Get("/{id}", s.handleGetUser)
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", s.handleListTasks)
				r.Post("/", s.handleCreateTask)
				r.Patch("/renew-recurring", s.handleRenewRecurring)
				r.Patch("/{id}", s.handleUpdateTask)
				r.Patch("/{id}/done", s.handleMarkTaskDone)
				r.Delete("/{id}", s.handleDeleteTask)
			})

			r.Route("/goals", func(r chi.Router) {
				r.Get("/", s.handleListGoals)
				r.Post("/", s.handleCreateGoal)
				r.Get("/summary", s.handleGoalSummary)
				r.Patch("/{id}", s.handleUpdateGoal)
				r.Patch("/{id}/complete", s.handleCompleteGoal)
				r.Delete("/{id}", s.handleDeleteGoal)
			})

			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", s.handleListTransactions)
				r.Post("/", s.handleCreateTransaction)
				r.Get("/summary-by-responsible", s.handleTransactionSummary)
				r.Post("/fill-responsible", s.handleFillResponsible)
				r.Patch("/{id}", s.handleUpdateTransaction)
				r.Delete("/{id}", s.handleDeleteTransaction)
			})

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/evolution", s.handleEvolution)
				r.Get("/produtividade", s.handleProductivity)
				r.Get("/tasks-by-category", s.handleTasksByCategory)
			})

			r.Route("/insights", func(r chi.Router) {
				r.Post("/financeiro", s.handleFinancialInsight)
				r.Post("/produtividade", s.handleProductivityInsight)
				r.Post("/meta", s.handleCompleteInsight)
			})
		})
	})

	return r
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r))
	ErrorResponse(http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded, try again later").Write(w)
}

func (s *Server) onAuthFailed(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, err)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
