package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/careerpath-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return EnsureIndexes(db)
}

// EnsureIndexes creates the read-path indexes gorm tags cannot express.
func EnsureIndexes(db *gorm.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{
			name: "idx_career_predictions_user_active",
			sql:  `CREATE INDEX IF NOT EXISTS idx_career_predictions_user_active ON career_predictions(user_id, is_active, confidence_score DESC);`,
		},
		{
			name: "idx_career_avoidances_user_position",
			sql:  `CREATE INDEX IF NOT EXISTS idx_career_avoidances_user_position ON career_avoidances(user_id, position);`,
		},
	}
	for _, s := range stmts {
		if err := db.Exec(s.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	return nil
}
