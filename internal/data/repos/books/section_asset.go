package books

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/dbctx"
	apperrors "github.com/pedrohsmesquita/Lectria/internal/pkg/errors"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
)

type SectionAssetRepo interface {
	Create(dbc dbctx.Context, row *types.SectionAsset) (*types.SectionAsset, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SectionAsset, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	DeleteByID(dbc dbctx.Context, id uuid.UUID) error
	ReplaceForSection(dbc dbctx.Context, sectionID uuid.UUID, rows []*types.SectionAsset) ([]*types.SectionAsset, error)
	ListBySectionIDs(dbc dbctx.Context, sectionIDs []uuid.UUID) ([]*types.SectionAsset, error)
	DeleteBySectionIDs(dbc dbctx.Context, sectionIDs []uuid.UUID) error
}

type sectionAssetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSectionAssetRepo(db *gorm.DB, baseLog *logger.Logger) SectionAssetRepo {
	return &sectionAssetRepo{db: db, log: baseLog.With("repo", "SectionAssetRepo")}
}

func (r *sectionAssetRepo) ReplaceForSection(dbc dbctx.Context, sectionID uuid.UUID, rows []*types.SectionAsset) ([]*types.SectionAsset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("section_id = ?", sectionID).
		Delete(&types.SectionAsset{}).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []*types.SectionAsset{}, nil
	}
	for _, row := range rows {
		row.SectionID = sectionID
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *sectionAssetRepo) ListBySectionIDs(dbc dbctx.Context, sectionIDs []uuid.UUID) ([]*types.SectionAsset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.SectionAsset
	if len(sectionIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("section_id IN ?", sectionIDs).
		Order("created_at ASC").Order("placeholder ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sectionAssetRepo) DeleteBySectionIDs(dbc dbctx.Context, sectionIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(sectionIDs) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("section_id IN ?", sectionIDs).
		Delete(&types.SectionAsset{}).Error
}

func (r *sectionAssetRepo) Create(dbc dbctx.Context, row *types.SectionAsset) (*types.SectionAsset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *sectionAssetRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SectionAsset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var a types.SectionAsset
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&a).Error; err != nil {
		return nil, err
	}
	if a.ID == uuid.Nil {
		return nil, fmt.Errorf("asset %s: %w", id, apperrors.ErrNotFound)
	}
	return &a, nil
}

func (r *sectionAssetRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.SectionAsset{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("asset %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func (r *sectionAssetRepo) DeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&types.SectionAsset{}).Error
}
