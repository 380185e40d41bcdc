package journal

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/careerpath-backend/internal/domain"
	"github.com/yungbote/careerpath-backend/internal/pkg/dbctx"
	"github.com/yungbote/careerpath-backend/internal/pkg/logger"
)

type CareerPredictionRepo interface {
	CreateMany(dbc dbctx.Context, rows []*types.CareerPrediction) ([]*types.CareerPrediction, error)
	DeleteByUser(dbc dbctx.Context, userID uuid.UUID) error
	// ListActive returns the active set ordered by confidence, highest first.
	ListActive(dbc dbctx.Context, userID uuid.UUID) ([]*types.CareerPrediction, error)
}

type careerPredictionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCareerPredictionRepo(db *gorm.DB, baseLog *logger.Logger) CareerPredictionRepo {
	return &careerPredictionRepo{db: db, log: baseLog.With("repo", "CareerPredictionRepo")}
}

func (r *careerPredictionRepo) CreateMany(dbc dbctx.Context, rows []*types.CareerPrediction) ([]*types.CareerPrediction, error) {
	if len(rows) == 0 {
		return rows, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *careerPredictionRepo) DeleteByUser(dbc dbctx.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).
		Where("user_id = ?", userID).
		Delete(&types.CareerPrediction{}).Error
}

func (r *careerPredictionRepo) ListActive(dbc dbctx.Context, userID uuid.UUID) ([]*types.CareerPrediction, error) {
	var out []*types.CareerPrediction
	if userID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("confidence_score DESC").
		Order("rank ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
