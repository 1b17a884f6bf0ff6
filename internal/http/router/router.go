package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avtoscan/reports-backend/internal/config"
	"github.com/avtoscan/reports-backend/internal/http/handlers"
	"github.com/avtoscan/reports-backend/internal/http/middleware"
	"github.com/avtoscan/reports-backend/internal/service"
)

// SetupRouter собирает все маршруты API.
func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	reportHandler *handlers.ReportHandler,
	imageHandler *handlers.ImageHandler,
	tagHandler *handlers.TagHandler,
	userHandler *handlers.UserHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	r.StaticFS("/uploads", http.Dir(cfg.UploadStoragePath))

	api := r.Group("/api")

	// Аутентификация. Логин и регистрация под rate limit от перебора.
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/signup", authHandler.Signup)
		authGroup.POST("/signin", authHandler.Signin)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/forgot-password", authHandler.ForgotPassword)
		authGroup.POST("/reset-password", authHandler.ResetPassword)
	}

	protectedAuth := api.Group("/auth")
	protectedAuth.Use(middleware.AuthMiddleware(tokenManager))
	{
		protectedAuth.POST("/logout", authHandler.Logout)
		protectedAuth.GET("/me", authHandler.Me)
	}

	// Публичные маршруты: каталог отчётов, поиск, оценка, теги.
	api.GET("/reports", reportHandler.List)
	api.GET("/reports/search", reportHandler.Search)
	api.GET("/reports/estimate", reportHandler.Estimate)
	api.GET("/reports/:id", middleware.UUIDValidator("id"), reportHandler.Get)
	api.GET("/tags", tagHandler.List)
	api.GET("/tags/:id", middleware.UUIDValidator("id"), tagHandler.Get)
	api.GET("/ws", wsHandler.Handle)

	// Защищённые маршруты.
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/reports", reportHandler.Create)
		protected.POST("/reports/:id/tags", middleware.UUIDValidator("id"), reportHandler.AddTags)
		protected.DELETE("/reports/:id/tags", middleware.UUIDValidator("id"), reportHandler.RemoveTags)
		protected.DELETE("/reports/:id", middleware.UUIDValidator("id"), reportHandler.Delete)

		protected.POST("/users/me/picture", userHandler.UploadPicture)

		protected.POST("/reports/:id/images", middleware.UUIDValidator("id"), imageHandler.Upload)
		protected.GET("/reports/:id/images", middleware.UUIDValidator("id"), imageHandler.List)
		protected.DELETE("/reports/:id/images/:imageId",
			middleware.UUIDValidator("id"), middleware.UUIDValidator("imageId"), imageHandler.Delete)
	}

	// Админские маршруты: модерация и жизненный цикл удаления.
	admin := api.Group("/")
	admin.Use(middleware.AuthMiddleware(tokenManager), middleware.RequireAdmin())
	{
		admin.GET("/reports/deleted", reportHandler.ListDeleted)
		admin.PATCH("/reports/:id/approve", middleware.UUIDValidator("id"), reportHandler.Approve)
		admin.PATCH("/reports/:id/restore", middleware.UUIDValidator("id"), reportHandler.Restore)
		admin.DELETE("/reports/:id/permanent", middleware.UUIDValidator("id"), reportHandler.Purge)

		admin.DELETE("/tags/:id", middleware.UUIDValidator("id"), tagHandler.Delete)
		admin.PATCH("/tags/:id/restore", middleware.UUIDValidator("id"), tagHandler.Restore)
		admin.DELETE("/tags/:id/permanent", middleware.UUIDValidator("id"), tagHandler.Purge)

		admin.GET("/users", userHandler.List)
		admin.GET("/users/deleted", userHandler.ListDeleted)
		admin.GET("/users/:id", middleware.UUIDValidator("id"), userHandler.Get)
		admin.DELETE("/users/:id", middleware.UUIDValidator("id"), userHandler.Delete)
		admin.PATCH("/users/:id/restore", middleware.UUIDValidator("id"), userHandler.Restore)
		admin.DELETE("/users/:id/permanent", middleware.UUIDValidator("id"), userHandler.Purge)
	}

	return r
}
