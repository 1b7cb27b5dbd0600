package database

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/config"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/logger"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/models"
)

var DB *gorm.DB

// Init opens the configured database and migrates the schema. Fatal on
// failure; the bot cannot run without storage.
func Init() {
	db, err := Connect(config.DatabaseType, config.GetDatabaseConnectionString())
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	DB = db
}

// Connect opens a database by type ("sqlite" or "postgres") and runs
// migrations. Exposed so tests can point at a throwaway sqlite file.
func Connect(dbType, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch dbType {
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	if err := migrate(db); err != nil {
		return nil, errors.Wrap(err, "running migrations")
	}

	return db, nil
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Code{},
		&models.GuildConfig{},
		&models.GuildThread{},
		&models.GuildRole{},
		&models.GuildSettings{},
		&models.LivestreamTracking{},
		&models.TrackedCode{},
		&models.YearMessage{},
	)
}

func Close() {
	if DB == nil {
		return
	}
	sqlDB, err := DB.DB()
	if err == nil {
		sqlDB.Close()
	}
}

const (
	maxRetries = 3
	retryDelay = 100 * time.Millisecond
)

// WithRetry re-runs fn when sqlite reports a transient lock. Anything else
// is returned as-is.
func WithRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = fn()
		if err == nil || !isLockError(err) {
			return err
		}
		time.Sleep(retryDelay * time.Duration(attempt+1))
	}
	return err
}

func isLockError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}
