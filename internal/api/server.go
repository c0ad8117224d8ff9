// Package api provides the HTTP API server and handlers for the StudyTrack application.
package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/studytrackapp/studytrack-server/internal/otp"
	"github.com/studytrackapp/studytrack-server/internal/ratelimit"
	"github.com/studytrackapp/studytrack-server/internal/search"
	"github.com/studytrackapp/studytrack-server/internal/service"
	"github.com/studytrackapp/studytrack-server/internal/sse"
	"github.com/studytrackapp/studytrack-server/internal/store"
	"github.com/studytrackapp/studytrack-server/internal/telemetry"
)

// Version is reported in the OpenAPI document.
const Version = "1.0.0"

// Services groups the business services the handlers call.
type Services struct {
	Auth      *service.AuthService
	Admin     *service.AdminService
	Hierarchy *service.HierarchyService
	Slots     *service.SlotService
	Bridge    *service.TopicTaskBridge
	Exams     *service.ExamService
	Progress  *service.ProgressService
	Search    *service.SearchService
}

// Options carries the optional infrastructure the server exposes or reports on.
type Options struct {
	// FrontendURL is the allowed CORS origin. Empty allows any origin without credentials.
	FrontendURL string

	// AuthRateLimiter throttles POST /api/v1/auth/* per client IP. Nil disables it.
	AuthRateLimiter *ratelimit.KeyedRateLimiter

	SSEManager  *sse.Manager
	Telemetry   *telemetry.Provider
	SearchIndex *search.SearchIndex
	OTP         *otp.Store
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    store.Store
	services *Services
	opts     Options
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st store.Store, services *Services, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		store:    st,
		services: services,
		opts:     opts,
		router:   chi.NewRouter(),
		logger:   logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("StudyTrack API", Version)
	humaConfig.Info.Description = "Study progress tracking: books, sections, chapters, topics, daily slots and exams."
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(requestID)
	if s.opts.Telemetry != nil {
		s.router.Use(s.opts.Telemetry.Middleware)
	}
	s.router.Use(requestLogger(s.logger))
	s.router.Use(recoverer(s.logger))
	s.router.Use(cors.Handler(corsOptions(s.opts.FrontendURL)))
	s.router.Use(middleware.Compress(5))
	if s.opts.AuthRateLimiter != nil {
		s.router.Use(s.authRateLimit(RateLimitMiddleware(s.opts.AuthRateLimiter, s.logger)))
	}
	s.router.Use(clientContext)
	if s.services.Auth != nil {
		s.router.Use(authMiddleware(s.services.Auth))
	}
}

// authRateLimit applies limit only to credential-bearing auth requests.
func (s *Server) authRateLimit(limit func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := limit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/api/v1/auth/") {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func corsOptions(frontendURL string) cors.Options {
	opts := cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}
	if frontendURL == "" {
		opts.AllowedOrigins = []string{"*"}
		return opts
	}
	opts.AllowedOrigins = []string{strings.TrimRight(frontendURL, "/")}
	opts.AllowCredentials = true
	return opts
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerBookRoutes()
	s.registerSectionRoutes()
	s.registerChapterRoutes()
	s.registerTopicRoutes()
	s.registerSlotRoutes()
	s.registerExamRoutes()
	s.registerProgressRoutes()
	s.registerSearchRoutes()
	s.registerAdminRoutes()

	if s.opts.Telemetry != nil {
		if h := s.opts.Telemetry.MetricsHandler(); h != nil {
			s.router.Handle("/metrics", h)
		}
	}

	if s.opts.SSEManager != nil {
		s.router.Handle("/api/v1/events", sse.NewHandler(s.opts.SSEManager, identifyStream, s.logger))
	}
}
