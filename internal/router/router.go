package router

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/anonto42/chirp/backend/internal/docstore"
	"github.com/anonto42/chirp/backend/internal/handlers"
	"github.com/anonto42/chirp/backend/internal/identity"
	"github.com/anonto42/chirp/backend/internal/middleware"
	"github.com/anonto42/chirp/backend/internal/repositories"
	"github.com/anonto42/chirp/backend/internal/services"
	"github.com/anonto42/chirp/backend/internal/storage"
)

// Services is the service layer wired over one document store
type Services struct {
	Dispatcher    *services.Dispatcher
	Identity      *services.IdentityService
	Graph         *services.GraphService
	Timeline      *services.TimelineService
	Engagement    *services.EngagementService
	Notifications *services.NotificationService
	Moderation    *services.ModerationService
}

// NewServices builds the repositories and services on store
func NewServices(store docstore.Store, provider services.IdentityProvider, log *zap.Logger, opts services.Options) *Services {
	// --- Initialize Repositories ---
	userRepo := repositories.NewDocUserRepository(store)
	handleRepo := repositories.NewDocHandleRepository(store)
	followRepo := repositories.NewDocFollowRepository(store)
	postRepo := repositories.NewDocPostRepository(store)
	likeRepo := repositories.NewDocLikeRepository(store)
	notificationRepo := repositories.NewDocNotificationRepository(store)
	reportRepo := repositories.NewDocReportRepository(store)
	actionRepo := repositories.NewDocAdminActionRepository(store)

	dispatcher := services.NewDispatcher(log)
	notifications := services.NewNotificationService(notificationRepo, userRepo, log, opts)
	return &Services{
		Dispatcher:    dispatcher,
		Identity:      services.NewIdentityService(userRepo, handleRepo, actionRepo, provider, log, opts),
		Graph:         services.NewGraphService(userRepo, followRepo, log),
		Timeline:      services.NewTimelineService(postRepo, userRepo, likeRepo, notifications, dispatcher, log, opts),
		Engagement:    services.NewEngagementService(postRepo, userRepo, likeRepo, notifications, dispatcher, log),
		Notifications: notifications,
		Moderation:    services.NewModerationService(reportRepo, actionRepo, postRepo, userRepo, log, opts),
	}
}

// Deps carries what the routes need besides the services
type Deps struct {
	Verifier identity.Verifier
	// Local is set when the local identity provider signs tokens
	Local *identity.LocalProvider
	// Uploader is nil when no blob backend is configured
	Uploader *storage.Uploader
	Health   *handlers.HealthHandler
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, svc *Services, deps Deps, log *zap.Logger) {
	// Health check - always accessible
	e.GET("/health", deps.Health.HealthCheck)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	handlers.NewAuthHandler(svc.Identity, deps.Local).RegisterAuthRoutes(authGroup)
	log.Info("auth routes configured")

	// --- Protected routes ---
	api := e.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(deps.Verifier))

	handlers.NewUserHandler(svc.Identity, svc.Graph).RegisterProfileRoutes(api)
	handlers.NewFollowHandler(svc.Graph).RegisterFollowRoutes(api)
	handlers.NewPostHandler(svc.Timeline).RegisterPostRoutes(api)
	handlers.NewFeedHandler(svc.Timeline).RegisterFeedRoutes(api)
	handlers.NewLikeHandler(svc.Engagement).RegisterLikeRoutes(api)
	handlers.NewNotificationHandler(svc.Notifications).RegisterNotificationRoutes(api)
	if deps.Uploader != nil {
		handlers.NewUploadHandler(deps.Uploader, svc.Identity).RegisterUploadRoutes(api)
	}
	handlers.NewStreamHandler(svc.Timeline, svc.Identity, svc.Notifications, svc.Moderation).RegisterStreamRoutes(api)

	adminHandler := handlers.NewAdminHandler(svc.Moderation, svc.Identity)
	adminHandler.RegisterReportRoutes(api)
	adminHandler.RegisterAdminRoutes(api.Group("/admin"))

	log.Info("all routes configured", zap.Bool("uploads", deps.Uploader != nil), zap.Bool("localSignIn", deps.Local != nil))
}
