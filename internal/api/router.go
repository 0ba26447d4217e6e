package api

import (
	"net/http"

	"github.com/avolkov/scholarchat/internal/api/handler"
	customMiddleware "github.com/avolkov/scholarchat/internal/api/middleware"
	"github.com/avolkov/scholarchat/internal/config"
	"github.com/avolkov/scholarchat/internal/engine"
	"github.com/avolkov/scholarchat/internal/gateway"
	"github.com/avolkov/scholarchat/internal/gateway/gemini"
	"github.com/avolkov/scholarchat/internal/gateway/openai"
	"github.com/avolkov/scholarchat/internal/gateway/retrieval"
	"github.com/avolkov/scholarchat/internal/repository/postgres"
	"github.com/avolkov/scholarchat/internal/repository/redis"
	"github.com/avolkov/scholarchat/internal/search"
	"github.com/avolkov/scholarchat/internal/security"
	"github.com/avolkov/scholarchat/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

// NewRouter creates and configures the HTTP router. db and redisClient
// are optional; without them the engine runs fully volatile and
// unthrottled.
func NewRouter(cfg *config.Config, db *postgres.DB, redisClient *redis.Client) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Session token boundary (auth itself is the external collaborator)
	tokens := security.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTokenTTL)
	sessionAuth := customMiddleware.NewSessionAuth(tokens)

	// Chat-completion providers
	completers := gateway.NewRegistry(cfg.Gateway.DefaultProvider)
	completers.Register(openai.NewClient(cfg.Gateway.OpenAI.BaseURL, cfg.Gateway.OpenAI.APIKey, cfg.Gateway.OpenAI.Model))
	if cfg.Gateway.Gemini.APIKey != "" {
		completers.Register(gemini.NewClient(cfg.Gateway.Gemini.APIKey, cfg.Gateway.Gemini.Model))
	}
	log.Info().
		Strs("providers", completers.Names()).
		Str("default", completers.DefaultProvider()).
		Msg("chat gateways registered")

	// Retrieval gateway and search collaborator
	retriever := retrieval.NewClient(cfg.Gateway.Retrieval.BaseURL)
	searchSvc := search.NewClient(cfg.Search.BaseURL)

	// Session state, optionally restored from redis snapshots
	var snapshots session.Snapshotter
	if redisClient != nil {
		snapshots = redis.NewSnapshotStore(redisClient)
	}
	sessions := session.NewManager(snapshots)

	// Best-effort turn archive
	var archiver engine.TurnArchiver
	if db != nil {
		archiver = postgres.NewTurnArchive(db)
	}

	responseRouter := engine.NewRouter(completers, retriever)

	// Handlers
	dialogueHandler := handler.NewDialogueHandler(sessions, responseRouter, archiver)
	selectionHandler := handler.NewSelectionHandler(sessions)
	searchHandler := handler.NewSearchHandler(sessions, searchSvc)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(db))

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(sessionAuth.Authenticate)

			if redisClient != nil {
				rateLimiter := redis.NewRateLimiter(
					redisClient,
					cfg.Security.RateLimit.RequestsPerMinute,
					cfg.Security.RateLimit.Burst,
				)
				r.Use(customMiddleware.NewRateLimitMiddleware(rateLimiter).Limit)
			}

			r.Get("/state", dialogueHandler.State)

			r.Route("/dialogues", func(r chi.Router) {
				r.Get("/", dialogueHandler.List)
				r.Post("/", dialogueHandler.Create)

				r.Route("/{dialogueID}", func(r chi.Router) {
					r.Get("/", dialogueHandler.Get)
					r.Put("/current", dialogueHandler.SetCurrent)
					r.Post("/turns", dialogueHandler.SubmitTurn)
				})
			})

			r.Route("/selection", func(r chi.Router) {
				r.Get("/", selectionHandler.Get)
				r.Post("/{itemID}/toggle", selectionHandler.Toggle)
			})

			r.Get("/articles", searchHandler.Search)
		})
	})

	return r
}
