package journal

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/careerpath-backend/internal/domain"
	"github.com/yungbote/careerpath-backend/internal/pkg/dbctx"
	"github.com/yungbote/careerpath-backend/internal/pkg/logger"
)

type CareerAvoidanceRepo interface {
	CreateMany(dbc dbctx.Context, rows []*types.CareerAvoidance) ([]*types.CareerAvoidance, error)
	DeleteByUser(dbc dbctx.Context, userID uuid.UUID) error
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.CareerAvoidance, error)
}

type careerAvoidanceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCareerAvoidanceRepo(db *gorm.DB, baseLog *logger.Logger) CareerAvoidanceRepo {
	return &careerAvoidanceRepo{db: db, log: baseLog.With("repo", "CareerAvoidanceRepo")}
}

func (r *careerAvoidanceRepo) CreateMany(dbc dbctx.Context, rows []*types.CareerAvoidance) ([]*types.CareerAvoidance, error) {
	if len(rows) == 0 {
		return rows, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *careerAvoidanceRepo) DeleteByUser(dbc dbctx.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).
		Where("user_id = ?", userID).
		Delete(&types.CareerAvoidance{}).Error
}

func (r *careerAvoidanceRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.CareerAvoidance, error) {
	var out []*types.CareerAvoidance
	if userID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("position ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
