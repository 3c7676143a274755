package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/seedbed-backend/internal/platform/envutil"
	"github.com/yungbote/seedbed-backend/internal/platform/logger"
)

type Service struct {
	db       *gorm.DB
	log      *logger.Logger
	postgres bool
}

// New opens the relational store. DB_DRIVER=sqlite switches to an
// embedded file database for offline development; everything else goes
// through Postgres.
func New(logg *logger.Logger) (*Service, error) {
	serviceLog := logg.With("service", "DBService")

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	driver := strings.ToLower(envutil.GetEnv("DB_DRIVER", "postgres", logg))
	if driver == "sqlite" {
		path := envutil.GetEnv("SQLITE_PATH", "seedbed.db", logg)
		sq, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormLog, TranslateError: true})
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite at %s: %w", path, err)
		}
		return &Service{db: sq, log: serviceLog, postgres: false}, nil
	}

	host := envutil.GetEnv("POSTGRES_HOST", "localhost", logg)
	port := envutil.GetEnv("POSTGRES_PORT", "5432", logg)
	user := envutil.GetEnv("POSTGRES_USER", "postgres", logg)
	password := envutil.GetEnv("POSTGRES_PASSWORD", "", logg)
	name := envutil.GetEnv("POSTGRES_NAME", "seedbed", logg)

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		user, password, host, port, name,
	)

	pg, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := pg.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &Service{db: pg, log: serviceLog, postgres: true}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }

// IsPostgres reports whether Postgres-only DDL (partial indexes, SKIP
// LOCKED) is available on this connection.
func (s *Service) IsPostgres() bool { return s.postgres }
