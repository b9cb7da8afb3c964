package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Smeruxa/STalk-Messenger/internal/api/middleware"
	"github.com/Smeruxa/STalk-Messenger/internal/auth"
	"github.com/Smeruxa/STalk-Messenger/internal/config"
	"github.com/Smeruxa/STalk-Messenger/internal/handlers"
	"github.com/Smeruxa/STalk-Messenger/internal/store"
	"github.com/Smeruxa/STalk-Messenger/internal/ws"
)

// maxUploadSize caps avatar uploads.
const maxUploadSize = 5 << 20 // 5MB

// NewRouter creates and configures the HTTP router. All realtime
// traffic goes through the /ws endpoint; everything else is thin
// request/response plumbing around it.
func NewRouter(logger zerolog.Logger, cfg *config.Config, dataStore store.DataStore, redisClient *redis.Client, tokens *auth.Tokens, wsServer *ws.Server) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)
	r.Use(middleware.SecurityHeaders)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// CORS - clients are mobile apps connecting from anywhere
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.New(dataStore, redisClient, tokens, logger, cfg.UploadDir, cfg.UploadURLPath)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", h.Health)

	// Realtime endpoint; verification happens inside the upgrade
	r.Get("/ws", wsServer.HandleWS)

	// Avatar upload and static pass-through for uploaded media
	r.With(middleware.MaxBodySize(maxUploadSize)).Post("/upload-avatar", h.UploadAvatar)
	r.Handle(cfg.UploadURLPath+"/*", http.StripPrefix(cfg.UploadURLPath+"/", http.FileServer(http.Dir(cfg.UploadDir))))

	return r
}
