package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/seedbed-backend/internal/handlers"
	"github.com/yungbote/seedbed-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler     *handlers.AuthHandler
	AuthMiddleware  *middleware.AuthMiddleware
	SeedHandler     *handlers.SeedHandler
	CategoryHandler *handlers.CategoryHandler
	TagHandler      *handlers.TagHandler
	OpsHandler      *handlers.OpsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Auth
	protected.POST("/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/logout", cfg.AuthHandler.Logout)
	// Seeds
	protected.POST("/seeds", cfg.SeedHandler.Create)
	protected.GET("/seeds", cfg.SeedHandler.List)
	protected.GET("/seeds/:id", cfg.SeedHandler.Get)
	protected.GET("/seeds/:id/transactions", cfg.SeedHandler.Transactions)
	protected.DELETE("/seeds/:id", cfg.SeedHandler.Delete)
	protected.PUT("/seeds/:id/content", cfg.SeedHandler.EditContent)
	protected.POST("/seeds/:id/tags", cfg.SeedHandler.AddTag)
	protected.DELETE("/seeds/:id/tags/:tagId", cfg.SeedHandler.RemoveTag)
	protected.PUT("/seeds/:id/category", cfg.SeedHandler.SetCategory)
	protected.DELETE("/seeds/:id/category", cfg.SeedHandler.RemoveCategory)
	protected.POST("/seeds/:id/sprouts", cfg.SeedHandler.AddSprout)
	// Categories
	protected.POST("/categories", cfg.CategoryHandler.Create)
	protected.GET("/categories", cfg.CategoryHandler.List)
	protected.GET("/categories/:id", cfg.CategoryHandler.Get)
	protected.PUT("/categories/:id/name", cfg.CategoryHandler.Rename)
	protected.PUT("/categories/:id/parent", cfg.CategoryHandler.Move)
	protected.DELETE("/categories/:id", cfg.CategoryHandler.Delete)
	// Tags
	protected.POST("/tags", cfg.TagHandler.Create)
	protected.GET("/tags", cfg.TagHandler.List)
	protected.PUT("/tags/:id/name", cfg.TagHandler.Rename)
	protected.PUT("/tags/:id/color", cfg.TagHandler.SetColor)
	protected.DELETE("/tags/:id", cfg.TagHandler.Delete)
	// Ops
	protected.GET("/ops/queue", cfg.OpsHandler.Queue)
	protected.GET("/ops/failed", cfg.OpsHandler.Failed)
	protected.GET("/ops/pressure", cfg.OpsHandler.Pressure)
	protected.GET("/ops/automations", cfg.OpsHandler.Automations)
	protected.PUT("/ops/automations/:id", cfg.OpsHandler.ToggleAutomation)
	protected.POST("/ops/backfill-slugs", cfg.OpsHandler.BackfillSlugs)
	protected.POST("/ops/cleanup-seeds", cfg.OpsHandler.CleanupInvalidSeeds)

	return router
}
