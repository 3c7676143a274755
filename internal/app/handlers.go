package app

import (
	"github.com/yungbote/seedbed-backend/internal/handlers"
	"github.com/yungbote/seedbed-backend/internal/platform/logger"
)

type Handlers struct {
	Auth     *handlers.AuthHandler
	Seed     *handlers.SeedHandler
	Category *handlers.CategoryHandler
	Tag      *handlers.TagHandler
	Ops      *handlers.OpsHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Auth:     handlers.NewAuthHandler(services.Auth),
		Seed:     handlers.NewSeedHandler(services.Seed),
		Category: handlers.NewCategoryHandler(services.Category),
		Tag:      handlers.NewTagHandler(services.Tag),
		Ops:      handlers.NewOpsHandler(services.Ops, services.Seed),
	}
}
