package books

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/dbctx"
	apperrors "github.com/pedrohsmesquita/Lectria/internal/pkg/errors"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
)

type ChapterRepo interface {
	Create(dbc dbctx.Context, rows []*types.Chapter) ([]*types.Chapter, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Chapter, error)
	ListByBook(dbc dbctx.Context, bookID uuid.UUID) ([]*types.Chapter, error)
	ListByBookWithSections(dbc dbctx.Context, bookID uuid.UUID) ([]*types.Chapter, error)
	GetBibliography(dbc dbctx.Context, bookID uuid.UUID) (*types.Chapter, error)
	MaxOrder(dbc dbctx.Context, bookID uuid.UUID) (int, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	DeleteContentChapters(dbc dbctx.Context, bookID uuid.UUID) ([]uuid.UUID, error)
}

type chapterRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChapterRepo(db *gorm.DB, baseLog *logger.Logger) ChapterRepo {
	return &chapterRepo{db: db, log: baseLog.With("repo", "ChapterRepo")}
}

func (r *chapterRepo) Create(dbc dbctx.Context, rows []*types.Chapter) ([]*types.Chapter, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.Chapter{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *chapterRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Chapter, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var ch types.Chapter
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&ch).Error; err != nil {
		return nil, err
	}
	if ch.ID == uuid.Nil {
		return nil, fmt.Errorf("chapter %s: %w", id, apperrors.ErrNotFound)
	}
	return &ch, nil
}

// ListByBook orders by sort_order with created_at and id as tie breakers, so
// duplicate or gapped orders still list deterministically.
func (r *chapterRepo) ListByBook(dbc dbctx.Context, bookID uuid.UUID) ([]*types.Chapter, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Chapter
	if err := transaction.WithContext(dbc.Ctx).
		Where("book_id = ?", bookID).
		Order("sort_order ASC").Order("created_at ASC").Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chapterRepo) ListByBookWithSections(dbc dbctx.Context, bookID uuid.UUID) ([]*types.Chapter, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Chapter
	if err := transaction.WithContext(dbc.Ctx).
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC").Order("created_at ASC").Order("id ASC")
		}).
		Where("book_id = ?", bookID).
		Order("sort_order ASC").Order("created_at ASC").Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetBibliography returns nil, nil when the book has no bibliography chapter yet.
func (r *chapterRepo) GetBibliography(dbc dbctx.Context, bookID uuid.UUID) (*types.Chapter, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var ch types.Chapter
	if err := transaction.WithContext(dbc.Ctx).
		Where("book_id = ? AND is_bibliography = ?", bookID, true).
		Order("created_at ASC").
		Limit(1).
		Find(&ch).Error; err != nil {
		return nil, err
	}
	if ch.ID == uuid.Nil {
		return nil, nil
	}
	return &ch, nil
}

func (r *chapterRepo) MaxOrder(dbc dbctx.Context, bookID uuid.UUID) (int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var max *int
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Chapter{}).
		Where("book_id = ?", bookID).
		Select("MAX(sort_order)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

func (r *chapterRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Chapter{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// DeleteContentChapters removes every non-bibliography chapter of a book and
// returns their ids so callers can clean up the sections.
func (r *chapterRepo) DeleteContentChapters(dbc dbctx.Context, bookID uuid.UUID) ([]uuid.UUID, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var ids []uuid.UUID
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Chapter{}).
		Where("book_id = ? AND is_bibliography = ?", bookID, false).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return ids, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Delete(&types.Chapter{}).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
