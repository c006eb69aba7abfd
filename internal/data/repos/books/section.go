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

type SectionRepo interface {
	Create(dbc dbctx.Context, rows []*types.Section) ([]*types.Section, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Section, error)
	ListByChapter(dbc dbctx.Context, chapterID uuid.UUID) ([]*types.Section, error)
	// ListContentByBook returns every section outside the bibliography chapter,
	// in reading order.
	ListContentByBook(dbc dbctx.Context, bookID uuid.UUID) ([]*types.Section, error)
	NextPending(dbc dbctx.Context, bookID uuid.UUID) (*types.Section, error)
	CountByStatus(dbc dbctx.Context, bookID uuid.UUID) (map[string]int, error)
	AnyProcessing(dbc dbctx.Context, bookID uuid.UUID) (bool, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	TransitionStatus(dbc dbctx.Context, id uuid.UUID, from []string, updates map[string]interface{}) (bool, error)
	DeleteByChapterIDs(dbc dbctx.Context, chapterIDs []uuid.UUID) ([]uuid.UUID, error)
}

type sectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSectionRepo(db *gorm.DB, baseLog *logger.Logger) SectionRepo {
	return &sectionRepo{db: db, log: baseLog.With("repo", "SectionRepo")}
}

func (r *sectionRepo) Create(dbc dbctx.Context, rows []*types.Section) ([]*types.Section, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.Section{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *sectionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Section, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var s types.Section
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&s).Error; err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, fmt.Errorf("section %s: %w", id, apperrors.ErrNotFound)
	}
	return &s, nil
}

func (r *sectionRepo) ListByChapter(dbc dbctx.Context, chapterID uuid.UUID) ([]*types.Section, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Section
	if err := transaction.WithContext(dbc.Ctx).
		Where("chapter_id = ?", chapterID).
		Order("sort_order ASC").Order("created_at ASC").Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sectionRepo) readingOrder(transaction *gorm.DB, bookID uuid.UUID) *gorm.DB {
	return transaction.
		Model(&types.Section{}).
		Select("section.*").
		Joins("JOIN chapter ON chapter.id = section.chapter_id").
		Where("section.book_id = ? AND chapter.is_bibliography = ?", bookID, false).
		Order("chapter.sort_order ASC").
		Order("chapter.created_at ASC").
		Order("chapter.id ASC").
		Order("section.sort_order ASC").
		Order("section.created_at ASC").
		Order("section.id ASC")
}

func (r *sectionRepo) ListContentByBook(dbc dbctx.Context, bookID uuid.UUID) ([]*types.Section, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Section
	if err := r.readingOrder(transaction.WithContext(dbc.Ctx), bookID).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// NextPending returns nil, nil when no pending content section remains.
func (r *sectionRepo) NextPending(dbc dbctx.Context, bookID uuid.UUID) (*types.Section, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var s types.Section
	if err := r.readingOrder(transaction.WithContext(dbc.Ctx), bookID).
		Where("section.status = ?", types.SectionStatusPending).
		Limit(1).
		Find(&s).Error; err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, nil
	}
	return &s, nil
}

func (r *sectionRepo) CountByStatus(dbc dbctx.Context, bookID uuid.UUID) (map[string]int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	type row struct {
		Status string
		N      int
	}
	var rows []row
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Section{}).
		Select("section.status AS status, COUNT(*) AS n").
		Joins("JOIN chapter ON chapter.id = section.chapter_id").
		Where("section.book_id = ? AND chapter.is_bibliography = ?", bookID, false).
		Group("section.status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

func (r *sectionRepo) AnyProcessing(dbc dbctx.Context, bookID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Section{}).
		Where("book_id = ? AND status = ?", bookID, types.SectionStatusProcessing).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *sectionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Section{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *sectionRepo) TransitionStatus(dbc dbctx.Context, id uuid.UUID, from []string, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(from) == 0 {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Section{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *sectionRepo) DeleteByChapterIDs(dbc dbctx.Context, chapterIDs []uuid.UUID) ([]uuid.UUID, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(chapterIDs) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Section{}).
		Where("chapter_id IN ?", chapterIDs).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return ids, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Delete(&types.Section{}).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
