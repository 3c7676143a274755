package app

import (
	"gorm.io/gorm"

	automationrepo "github.com/yungbote/seedbed-backend/internal/data/repos/automation"
	seedsrepo "github.com/yungbote/seedbed-backend/internal/data/repos/seeds"
	"github.com/yungbote/seedbed-backend/internal/data/repos/taxonomy"
	userrepo "github.com/yungbote/seedbed-backend/internal/data/repos/user"
	"github.com/yungbote/seedbed-backend/internal/platform/logger"
)

type Repos struct {
	User          userrepo.UserRepo
	UserToken     userrepo.UserTokenRepo
	Seed          seedsrepo.SeedRepo
	Transaction   seedsrepo.TransactionRepo
	Tag           taxonomy.TagRepo
	Category      taxonomy.CategoryRepo
	Automation    automationrepo.AutomationRepo
	Queue         automationrepo.QueueRepo
	PressurePoint automationrepo.PressurePointRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:          userrepo.NewUserRepo(db, log),
		UserToken:     userrepo.NewUserTokenRepo(db, log),
		Seed:          seedsrepo.NewSeedRepo(db, log),
		Transaction:   seedsrepo.NewTransactionRepo(db, log),
		Tag:           taxonomy.NewTagRepo(db, log),
		Category:      taxonomy.NewCategoryRepo(db, log),
		Automation:    automationrepo.NewAutomationRepo(db, log),
		Queue:         automationrepo.NewQueueRepo(db, log),
		PressurePoint: automationrepo.NewPressurePointRepo(db, log),
	}
}
