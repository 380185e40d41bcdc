package journal

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/careerpath-backend/internal/domain"
	"github.com/yungbote/careerpath-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/careerpath-backend/internal/pkg/errors"
	"github.com/yungbote/careerpath-backend/internal/pkg/logger"
)

type JournalEntryRepo interface {
	Create(dbc dbctx.Context, entry *types.JournalEntry) (*types.JournalEntry, error)
	GetByID(dbc dbctx.Context, userID, id uuid.UUID) (*types.JournalEntry, error)
	// ListRecent returns at most limit entries, newest first.
	ListRecent(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.JournalEntry, error)
	// MoodSince returns mood samples at or after since, oldest first.
	MoodSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) ([]types.MoodPoint, error)
	// MoodOldest returns the first limit mood samples, oldest first.
	MoodOldest(dbc dbctx.Context, userID uuid.UUID, limit int) ([]types.MoodPoint, error)
}

type journalEntryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJournalEntryRepo(db *gorm.DB, baseLog *logger.Logger) JournalEntryRepo {
	return &journalEntryRepo{db: db, log: baseLog.With("repo", "JournalEntryRepo")}
}

func (r *journalEntryRepo) Create(dbc dbctx.Context, entry *types.JournalEntry) (*types.JournalEntry, error) {
	if entry == nil {
		return nil, pkgerrors.ErrInvalidArgument
	}
	if entry.UserID == uuid.Nil {
		return nil, pkgerrors.ErrInvalidArgument
	}
	if err := dbc.DB(r.db).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *journalEntryRepo) GetByID(dbc dbctx.Context, userID, id uuid.UUID) (*types.JournalEntry, error) {
	if userID == uuid.Nil || id == uuid.Nil {
		return nil, pkgerrors.ErrNotFound
	}
	var row types.JournalEntry
	err := dbc.DB(r.db).
		Where("user_id = ? AND id = ?", userID, id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *journalEntryRepo) ListRecent(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.JournalEntry, error) {
	var out []*types.JournalEntry
	if userID == uuid.Nil || limit <= 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *journalEntryRepo) MoodSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) ([]types.MoodPoint, error) {
	out := []types.MoodPoint{}
	if userID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Model(&types.JournalEntry{}).
		Select("created_at", "mood_score").
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at ASC").
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *journalEntryRepo) MoodOldest(dbc dbctx.Context, userID uuid.UUID, limit int) ([]types.MoodPoint, error) {
	out := []types.MoodPoint{}
	if userID == uuid.Nil || limit <= 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Model(&types.JournalEntry{}).
		Select("created_at", "mood_score").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Limit(limit).
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
