// Package api provides the HTTP API server and handlers for ReadUp.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/listenupapp/readup-server/internal/auth"
	"github.com/listenupapp/readup-server/internal/config"
	"github.com/listenupapp/readup-server/internal/sse"
)

// Version is reported in the OpenAPI document.
const Version = "1.0.0"

// pinger reports whether the database answers.
type pinger interface {
	Ping() error
}

// documentCounter reports the size of the search index.
type documentCounter interface {
	DocumentCount() (uint64, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services     *Services
	storage      *StorageServices
	tokens       *auth.TokenService
	db           pinger
	index        documentCounter
	sseManager   *sse.Manager
	sseHandler   *sse.Handler
	writeLimiter *RateLimiter
	router       *chi.Mux
	api          huma.API
	logger       *slog.Logger
}

// Dependencies are the collaborators of the HTTP server.
type Dependencies struct {
	Config     *config.Config
	Services   *Services
	Storage    *StorageServices
	Tokens     *auth.TokenService
	DB         pinger
	Index      documentCounter
	SSEManager *sse.Manager
	Logger     *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(deps Dependencies) *Server {
	s := &Server{
		services:   deps.Services,
		storage:    deps.Storage,
		tokens:     deps.Tokens,
		db:         deps.DB,
		index:      deps.Index,
		sseManager: deps.SSEManager,
		router:     chi.NewRouter(),
		logger:     deps.Logger,
	}
	s.writeLimiter = NewRateLimiter(deps.Config.RateLimit.WritesPerSecond, deps.Config.RateLimit.Burst)
	s.sseHandler = sse.NewHandler(deps.SSEManager, identifyRequest, deps.Logger)

	s.setupMiddleware(deps.Config.Server.CORSOrigins)
	s.api = humachi.New(s.router, newHumaConfig(deps.Config.App.Name))
	RegisterErrorHandler()
	s.setupRoutes()

	return s
}

// newHumaConfig builds the OpenAPI configuration shared by the server and tests.
func newHumaConfig(name string) huma.Config {
	humaConfig := huma.DefaultConfig(name+" API", Version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	return humaConfig
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	s.writeLimiter.Stop()
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(origins []string) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(middleware.Compress(5, "application/json"))
	s.router.Use(authMiddleware(s.tokens, s.services.Profile, s.logger))
	s.router.Use(WriteRateLimitMiddleware(s.writeLimiter, s.logger))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerProfileRoutes()
	s.registerBookRoutes()
	s.registerUserBookRoutes()
	s.registerSessionRoutes()
	s.registerStatsRoutes()
	s.registerCoverRoutes()

	s.router.Get(eventsPath, s.sseHandler.ServeHTTP)
}

// requestLogger logs one line per request with its status and duration.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			switch {
			case ww.Status() >= http.StatusInternalServerError:
				level = slog.LevelError
			case ww.Status() >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			logger.LogAttrs(r.Context(), level, "http request",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
