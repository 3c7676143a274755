package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/seedbed-backend/internal/server"
)

func wireRouter(handlers Handlers, middleware Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AuthHandler:     handlers.Auth,
		AuthMiddleware:  middleware.Auth,
		SeedHandler:     handlers.Seed,
		CategoryHandler: handlers.Category,
		TagHandler:      handlers.Tag,
		OpsHandler:      handlers.Ops,
	})
}
