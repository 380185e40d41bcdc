package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/careerpath-backend/internal/pkg/logger"
)

// OpenSQLite opens a SQLite database at path. A path such as
// "file:name?mode=memory&cache=shared" gives a private in-memory store.
func OpenSQLite(log *logger.Logger, path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}
	log.Info("opened SQLite", "path", path)
	return db, nil
}
