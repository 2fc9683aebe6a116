package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/storehaus/review-engine/internal/config"
	"github.com/storehaus/review-engine/internal/delivery/http/handler"
	"github.com/storehaus/review-engine/internal/delivery/http/middleware"
	"github.com/storehaus/review-engine/internal/delivery/http/response"
	"github.com/storehaus/review-engine/internal/pkg/logger"
)

// Router holds HTTP handlers and router configuration
type Router struct {
	reviewHandler       *handler.ReviewHandler
	notificationHandler *handler.NotificationHandler
	logger              *logger.Logger
	cfg                 *config.Config
}

// NewRouter creates a new HTTP router
func NewRouter(
	reviewHandler *handler.ReviewHandler,
	notificationHandler *handler.NotificationHandler,
	cfg *config.Config,
	log *logger.Logger,
) *Router {
	return &Router{
		reviewHandler:       reviewHandler,
		notificationHandler: notificationHandler,
		logger:              log,
		cfg:                 cfg,
	}
}

// Setup configures and returns the HTTP router
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logger(rt.logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", rt.healthCheck)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	authenticate := middleware.Authenticate(rt.cfg.Auth.JWTSecret)
	requireAdmin := middleware.RequireAdmin()

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products/{id}/reviews", func(r chi.Router) {
			r.Get("/", rt.reviewHandler.GetByProductID)
			r.With(authenticate).Post("/", rt.reviewHandler.Create)
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Use(authenticate)
			r.With(requireAdmin).Delete("/{id}", rt.reviewHandler.Delete)
			r.Post("/{id}/like", rt.reviewHandler.ToggleLike)
			r.Post("/{id}/replies", rt.reviewHandler.CreateReply)
			r.Post("/{id}/replies/{replyID}/like", rt.reviewHandler.ToggleReplyLike)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/", rt.notificationHandler.List)
			r.Get("/unread-count", rt.notificationHandler.UnreadCount)
			r.Post("/{id}/read", rt.notificationHandler.MarkRead)
			r.Post("/read-all", rt.notificationHandler.MarkAllRead)
			r.With(requireAdmin).Post("/broadcast", rt.notificationHandler.Broadcast)
		})
	})

	return r
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
