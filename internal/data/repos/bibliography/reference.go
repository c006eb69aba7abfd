package bibliography

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/pedrohsmesquita/Lectria/internal/data/db"
	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/dbctx"
	apperrors "github.com/pedrohsmesquita/Lectria/internal/pkg/errors"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
)

type ReferenceRepo interface {
	Create(dbc dbctx.Context, rows []*types.GlobalReference) ([]*types.GlobalReference, error)
	ListByBook(dbc dbctx.Context, bookID uuid.UUID) ([]*types.GlobalReference, error)
	GetByKeys(dbc dbctx.Context, bookID uuid.UUID, keys []string) ([]*types.GlobalReference, error)
	MaxNumber(dbc dbctx.Context, bookID uuid.UUID) (int, error)
	UpdateText(dbc dbctx.Context, id uuid.UUID, text string) error
	UpdateNumber(dbc dbctx.Context, id uuid.UUID, number int) error
	DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type referenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReferenceRepo(db *gorm.DB, baseLog *logger.Logger) ReferenceRepo {
	return &referenceRepo{db: db, log: baseLog.With("repo", "ReferenceRepo")}
}

func (r *referenceRepo) Create(dbc dbctx.Context, rows []*types.GlobalReference) ([]*types.GlobalReference, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.GlobalReference{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		if dbpkg.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: reference key or number already taken: %v", apperrors.ErrConflict, err)
		}
		return nil, err
	}
	return rows, nil
}

func (r *referenceRepo) ListByBook(dbc dbctx.Context, bookID uuid.UUID) ([]*types.GlobalReference, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.GlobalReference
	if err := transaction.WithContext(dbc.Ctx).
		Where("book_id = ?", bookID).
		Order("number ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *referenceRepo) GetByKeys(dbc dbctx.Context, bookID uuid.UUID, keys []string) ([]*types.GlobalReference, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.GlobalReference
	if len(keys) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("book_id = ? AND ref_key IN ?", bookID, keys).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *referenceRepo) MaxNumber(dbc dbctx.Context, bookID uuid.UUID) (int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var max *int
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.GlobalReference{}).
		Where("book_id = ?", bookID).
		Select("MAX(number)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil || *max < 0 {
		return 0, nil
	}
	return *max, nil
}

func (r *referenceRepo) UpdateText(dbc dbctx.Context, id uuid.UUID, text string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.GlobalReference{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"text": text, "updated_at": time.Now()}).Error
}

// UpdateNumber writes a single number. Callers permuting several rows must
// stage through negative values first to keep (book_id, number) unique.
func (r *referenceRepo) UpdateNumber(dbc dbctx.Context, id uuid.UUID, number int) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.GlobalReference{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"number": number, "updated_at": time.Now()}).Error
}

func (r *referenceRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Delete(&types.GlobalReference{}).Error
}
