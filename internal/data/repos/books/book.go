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

type BookRepo interface {
	Create(dbc dbctx.Context, book *types.Book) (*types.Book, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Book, error)
	List(dbc dbctx.Context, limit int) ([]*types.Book, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// TransitionStatus updates only when the current status is one of from.
	TransitionStatus(dbc dbctx.Context, id uuid.UUID, from []string, updates map[string]interface{}) (bool, error)
}

type bookRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBookRepo(db *gorm.DB, baseLog *logger.Logger) BookRepo {
	return &bookRepo{db: db, log: baseLog.With("repo", "BookRepo")}
}

func (r *bookRepo) Create(dbc dbctx.Context, book *types.Book) (*types.Book, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if book == nil {
		return nil, fmt.Errorf("%w: nil book", apperrors.ErrInvalidArgument)
	}
	if err := transaction.WithContext(dbc.Ctx).Create(book).Error; err != nil {
		return nil, err
	}
	return book, nil
}

func (r *bookRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Book, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var book types.Book
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&book).Error; err != nil {
		return nil, err
	}
	if book.ID == uuid.Nil {
		return nil, fmt.Errorf("book %s: %w", id, apperrors.ErrNotFound)
	}
	return &book, nil
}

func (r *bookRepo) List(dbc dbctx.Context, limit int) ([]*types.Book, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.Book
	if err := transaction.WithContext(dbc.Ctx).Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *bookRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Book{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *bookRepo) TransitionStatus(dbc dbctx.Context, id uuid.UUID, from []string, updates map[string]interface{}) (bool, error) {
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
		Model(&types.Book{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
