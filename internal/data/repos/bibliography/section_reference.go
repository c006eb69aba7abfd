package bibliography

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/dbctx"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
)

type SectionReferenceRepo interface {
	// Associate is idempotent: existing (section, reference) pairs are skipped.
	Associate(dbc dbctx.Context, rows []*types.SectionReference) (int, error)
	ListBySectionIDs(dbc dbctx.Context, sectionIDs []uuid.UUID) ([]*types.SectionReference, error)
	ListByReferenceIDs(dbc dbctx.Context, referenceIDs []uuid.UUID) ([]*types.SectionReference, error)
	DeleteBySectionIDs(dbc dbctx.Context, sectionIDs []uuid.UUID) error
	DeleteByReferenceIDs(dbc dbctx.Context, referenceIDs []uuid.UUID) error
}

type sectionReferenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSectionReferenceRepo(db *gorm.DB, baseLog *logger.Logger) SectionReferenceRepo {
	return &sectionReferenceRepo{db: db, log: baseLog.With("repo", "SectionReferenceRepo")}
}

func (r *sectionReferenceRepo) Associate(dbc dbctx.Context, rows []*types.SectionReference) (int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "section_id"}, {Name: "reference_id"}},
			DoNothing: true,
		}).
		Create(&rows)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

func (r *sectionReferenceRepo) ListBySectionIDs(dbc dbctx.Context, sectionIDs []uuid.UUID) ([]*types.SectionReference, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.SectionReference
	if len(sectionIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("section_id IN ?", sectionIDs).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sectionReferenceRepo) ListByReferenceIDs(dbc dbctx.Context, referenceIDs []uuid.UUID) ([]*types.SectionReference, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.SectionReference
	if len(referenceIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("reference_id IN ?", referenceIDs).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sectionReferenceRepo) DeleteBySectionIDs(dbc dbctx.Context, sectionIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(sectionIDs) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("section_id IN ?", sectionIDs).
		Delete(&types.SectionReference{}).Error
}

func (r *sectionReferenceRepo) DeleteByReferenceIDs(dbc dbctx.Context, referenceIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(referenceIDs) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("reference_id IN ?", referenceIDs).
		Delete(&types.SectionReference{}).Error
}
