package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/mkoppen/linguachat/internal/api/handler"
	customMiddleware "github.com/mkoppen/linguachat/internal/api/middleware"
	"github.com/mkoppen/linguachat/internal/config"
	"github.com/mkoppen/linguachat/internal/domain"
	"github.com/mkoppen/linguachat/internal/inference"
	"github.com/mkoppen/linguachat/internal/language"
	"github.com/mkoppen/linguachat/internal/learner"
	"github.com/mkoppen/linguachat/internal/optimizer"
	"github.com/mkoppen/linguachat/internal/relay"
	"github.com/mkoppen/linguachat/internal/repository/redis"
	"github.com/mkoppen/linguachat/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	cfg *config.Config,
	sessionRepo domain.SessionRepository,
	messageRepo domain.MessageRepository,
	store handler.Pinger,
	redisClient *redis.Client,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Language capabilities and the process-wide learner
	registry := language.NewRegistry()
	detector := language.NewDetector(registry)
	patternLearner := learner.New(cfg.Learner.HistoryLimit)

	// Inference backend client. The streaming client carries no client
	// timeout; relays end when the backend closes the stream or the
	// caller disconnects.
	backend := inference.NewClient(cfg.Inference.BaseURL, cfg.Inference.Timeout)
	streamBackend := inference.NewClient(cfg.Inference.BaseURL, 0)
	log.Info().Str("base_url", cfg.Inference.BaseURL).Msg("Using inference backend")

	// Pipeline
	transformer := optimizer.NewTransformer(backend, registry, detector, patternLearner, log.Logger)
	analyzer := optimizer.NewAnalyzer(backend)
	streamRelay := relay.New(streamBackend, log.Logger)

	// Services
	chatService := service.NewChatService(sessionRepo, messageRepo, transformer, streamRelay, log.Logger)
	analysisService := service.NewAnalysisService(analyzer, log.Logger)

	// Handlers
	sessionHandler := handler.NewSessionHandler(chatService)
	chatHandler := handler.NewChatHandler(chatService, log.Logger)
	analysisHandler := handler.NewAnalysisHandler(analysisService)
	promptHandler := handler.NewPromptHandler(transformer)

	// Rate limiting is optional; it only guards the backend-calling routes.
	limitBackendRoutes := func(next http.Handler) http.Handler { return next }
	if redisClient != nil {
		rateLimiter := redis.NewRateLimiter(
			redisClient,
			cfg.Security.RateLimit.RequestsPerMinute,
			cfg.Security.RateLimit.Burst,
		)
		limitBackendRoutes = customMiddleware.NewRateLimitMiddleware(rateLimiter).Limit
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Health
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(store))

		// Sessions
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", sessionHandler.List)
			r.Post("/", sessionHandler.Create)
			r.Post("/import", sessionHandler.Import)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Delete("/", sessionHandler.Delete)
				r.Get("/messages", sessionHandler.GetMessages)
				r.Put("/theme", sessionHandler.SetTheme)
				r.Get("/export", sessionHandler.Export)
			})
		})

		// Backend-calling routes
		r.Group(func(r chi.Router) {
			r.Use(limitBackendRoutes)

			r.Post("/chat/stream", chatHandler.Stream)
			r.Post("/analyze", analysisHandler.Analyze)
			r.Post("/improve-prompt", promptHandler.Improve)
			r.Post("/feedback", promptHandler.Feedback)

			r.Route("/visualize", func(r chi.Router) {
				r.Post("/flow", analysisHandler.VisualizeFlow)
				r.Post("/graph", analysisHandler.VisualizeGraph)
				r.Post("/topics", analysisHandler.VisualizeTopics)
				r.Post("/sentiment", analysisHandler.VisualizeSentiment)
			})
		})
	})

	return r
}
