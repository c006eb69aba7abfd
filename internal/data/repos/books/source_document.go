package books

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/dbctx"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
)

type SourceDocumentRepo interface {
	Create(dbc dbctx.Context, rows []*types.SourceDocument) ([]*types.SourceDocument, error)
	ListByBook(dbc dbctx.Context, bookID uuid.UUID) ([]*types.SourceDocument, error)
}

type sourceDocumentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSourceDocumentRepo(db *gorm.DB, baseLog *logger.Logger) SourceDocumentRepo {
	return &sourceDocumentRepo{db: db, log: baseLog.With("repo", "SourceDocumentRepo")}
}

func (r *sourceDocumentRepo) Create(dbc dbctx.Context, rows []*types.SourceDocument) ([]*types.SourceDocument, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.SourceDocument{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *sourceDocumentRepo) ListByBook(dbc dbctx.Context, bookID uuid.UUID) ([]*types.SourceDocument, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.SourceDocument
	if err := transaction.WithContext(dbc.Ctx).
		Where("book_id = ?", bookID).
		Order("created_at ASC").Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
