package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/seedbed-backend/internal/automations"
	"github.com/yungbote/seedbed-backend/internal/ledger"
	"github.com/yungbote/seedbed-backend/internal/pkg/dbctx"
	"github.com/yungbote/seedbed-backend/internal/platform/logger"
	"github.com/yungbote/seedbed-backend/internal/platform/openai"
	"github.com/yungbote/seedbed-backend/internal/pressure"
	"github.com/yungbote/seedbed-backend/internal/scheduler"
	"github.com/yungbote/seedbed-backend/internal/services"
)

type Services struct {
	Auth     services.AuthService
	Seed     services.SeedService
	Category services.CategoryService
	Tag      services.TagService
	Ops      services.OpsService

	Ledger   ledger.Service
	Pressure pressure.Service
	Registry *automations.Registry
	Worker   *scheduler.Worker

	ProjectionCache *ledger.ProjectionCache
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos) (Services, error) {
	log.Info("Wiring services...")

	cache, err := ledger.NewProjectionCache(log)
	if err != nil {
		return Services{}, fmt.Errorf("init projection cache: %w", err)
	}

	ledgerSvc := ledger.NewService(db, repos.Transaction, cache, log)

	aiClient, err := openai.NewClient(log)
	if err != nil {
		return Services{}, fmt.Errorf("init openai client: %w", err)
	}

	autoCfg, err := automations.LoadConfig(log)
	if err != nil {
		return Services{}, fmt.Errorf("load automation config: %w", err)
	}

	registry := automations.NewRegistry()
	if err := registry.Register(automations.NewAutoTagger(aiClient, repos.Tag, autoCfg.Tagging, log)); err != nil {
		return Services{}, err
	}
	if err := registry.Register(automations.NewAutoCategorizer(aiClient, repos.Category, autoCfg.Categorize, log)); err != nil {
		return Services{}, err
	}
	for _, a := range registry.All() {
		if _, err := repos.Automation.UpsertByName(dbctx.Background(context.Background()), a.Name()); err != nil {
			return Services{}, fmt.Errorf("register automation %s: %w", a.Name(), err)
		}
	}

	pressureSvc := pressure.NewService(ledgerSvc, repos.Seed, repos.PressurePoint, repos.Queue, repos.Automation, registry, autoCfg, log)

	worker := scheduler.NewWorker(log, ledgerSvc, repos.Seed, repos.Queue, repos.PressurePoint, repos.Automation, registry)

	authService := services.NewAuthService(db, log, repos.User, repos.UserToken, cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	seedService := services.NewSeedService(log, repos.Seed, repos.Transaction, repos.Tag, repos.Category, ledgerSvc)
	categoryService := services.NewCategoryService(log, repos.Category, seedService, ledgerSvc, pressureSvc)
	tagService := services.NewTagService(log, repos.Tag, seedService, ledgerSvc, pressureSvc)
	opsService := services.NewOpsService(log, repos.Seed, repos.Queue, repos.PressurePoint, repos.Automation)

	return Services{
		Auth:            authService,
		Seed:            seedService,
		Category:        categoryService,
		Tag:             tagService,
		Ops:             opsService,
		Ledger:          ledgerSvc,
		Pressure:        pressureSvc,
		Registry:        registry,
		Worker:          worker,
		ProjectionCache: cache,
	}, nil
}
