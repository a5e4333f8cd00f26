package router

import (
	"github.com/gin-gonic/gin"

	"notaflow/internal/handler"
	"notaflow/internal/middleware"
	"notaflow/internal/service"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	authSvc service.AuthService,
	adminAPIKey string,
	allowedOrigins []string,
	authH *handler.AuthHandler,
	documentH *handler.DocumentHandler,
	exportH *handler.ExportHandler,
	tenantH *handler.TenantHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/token", authH.IssueToken)

	// Protected routes - require valid tenant JWT
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(authSvc))
	protected.Use(middleware.TenantGuard())

	docs := protected.Group("/documents")
	docs.POST("", documentH.Ingest)
	docs.GET("", documentH.List)
	docs.GET("/export/csv", exportH.CSV)
	docs.GET("/export/xlsx", exportH.Excel)
	docs.GET("/:id", documentH.Get)
	docs.GET("/:id/events", documentH.Events)

	// Admin routes - tenant management, operator key only
	admin := v1.Group("/admin")
	admin.Use(middleware.AdminGuard(adminAPIKey))
	admin.POST("/tenants", tenantH.Create)
	admin.GET("/tenants", tenantH.List)
	admin.GET("/tenants/:id", tenantH.Get)
	admin.PATCH("/tenants/:id", tenantH.Update)

	return r
}
