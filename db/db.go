package db

import (
	"context"
	"os"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/finledger/qbo-connector/pkg/logger"
	"github.com/finledger/qbo-connector/pkg/utils"
	"github.com/finledger/qbo-connector/repo"
)

// Store is the database handle plus the repositories built on it.
type Store struct {
	DB *gorm.DB

	Tokens        *repo.TokenRepository
	WebhookEvents *repo.WebhookEventRepository
}

// Connect opens Postgres when POSTGRES_DSN is set, otherwise a local
// sqlite file. Query logging is opt-in via QUERY_LOGGING.
func Connect(ctx context.Context) (*Store, error) {
	config := &gorm.Config{}
	if os.Getenv("QUERY_LOGGING") == "true" {
		config.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	var (
		db  *gorm.DB
		err error
	)

	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		logger.Info(ctx, "connecting to postgres store")
		db, err = gorm.Open(postgres.Open(dsn), config)
	} else {
		path := utils.GetEnvWithDefault("SQLITE_PATH", "./qbo-connector.db")
		logger.Info(ctx, "connecting to sqlite store", logger.String("path", path))
		db, err = gorm.Open(sqlite.Open(path), config)
	}
	if err != nil {
		return nil, err
	}

	return NewStore(db), nil
}

// NewStore builds a Store around an open gorm handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		DB:            db,
		Tokens:        repo.NewTokenRepository(db),
		WebhookEvents: repo.NewWebhookEventRepository(db),
	}
}

// Migrate auto-migrates all connector models.
func (s *Store) Migrate() error {
	return s.DB.AutoMigrate(
		&repo.TokenRecord{},
		&repo.WebhookEvent{},
	)
}
