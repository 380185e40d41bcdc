package db

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/careerpath-backend/internal/pkg/envutil"
	"github.com/yungbote/careerpath-backend/internal/pkg/logger"
)

type Config struct {
	// Driver is "postgres" or "sqlite".
	Driver     string
	SQLitePath string
	Postgres   PostgresConfig
}

func ConfigFromEnv() Config {
	return Config{
		Driver:     strings.ToLower(envutil.String("postgres", "DB_DRIVER")),
		SQLitePath: envutil.String("careerpath.db", "SQLITE_PATH"),
		Postgres:   PostgresConfigFromEnv(),
	}
}

// Open connects with the configured driver and migrates the schema.
func Open(log *logger.Logger, cfg Config) (*gorm.DB, error) {
	log = log.With("service", "Database", "driver", cfg.Driver)

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case "postgres", "":
		db, err = OpenPostgres(log, cfg.Postgres)
	case "sqlite":
		db, err = OpenSQLite(log, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := AutoMigrateAll(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DBPinger is a context-aware health probe over the pooled connection.
type DBPinger struct {
	db *gorm.DB
}

func Pinger(db *gorm.DB) DBPinger {
	return DBPinger{db: db}
}

func (p DBPinger) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
