package bibliography

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pedrohsmesquita/Lectria/internal/citation"
	"github.com/pedrohsmesquita/Lectria/internal/data/repos"
	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/dbctx"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
)

// View is the reference list as shown to editors and renderers.
type View struct {
	BookID     uuid.UUID                `json:"book_id"`
	References []*types.GlobalReference `json:"references"`
	Document   string                   `json:"document"`
}

// Service is the entry point other packages use for bibliography work.
type Service struct {
	db         *gorm.DB
	repos      *repos.Set
	locker     BookLocker
	names      ChapterNames
	reconciler *Reconciler
	resolver   *Resolver
	log        *logger.Logger
}

func NewService(db *gorm.DB, set *repos.Set, locker BookLocker, names ChapterNames, baseLog *logger.Logger) *Service {
	names = names.withDefaults()
	return &Service{
		db:         db,
		repos:      set,
		locker:     locker,
		names:      names,
		reconciler: NewReconciler(db, set, locker, names, baseLog),
		resolver:   NewResolver(set, baseLog),
		log:        baseLog.With("service", "BibliographyService"),
	}
}

func (s *Service) Resolver() *Resolver { return s.resolver }

func (s *Service) Locker() BookLocker { return s.locker }

func (s *Service) Reconcile(ctx context.Context, bookID uuid.UUID, document string) (*Result, error) {
	return s.reconciler.Reconcile(dbctx.Context{Ctx: ctx}, bookID, document)
}

func (s *Service) Get(ctx context.Context, bookID uuid.UUID) (*View, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.repos.Book.GetByID(dbc, bookID); err != nil {
		return nil, err
	}
	refs, err := s.repos.Reference.ListByBook(dbc, bookID)
	if err != nil {
		return nil, err
	}
	return &View{BookID: bookID, References: refs, Document: RenderReferences(refs)}, nil
}

// Sync writes the rendered reference list into the bibliography chapter,
// creating the chapter if needed. It runs under the book lock.
func (s *Service) Sync(ctx context.Context, bookID uuid.UUID) (bool, error) {
	unlock, err := s.locker.Lock(ctx, bookID)
	if err != nil {
		return false, fmt.Errorf("lock book %s: %w", bookID, err)
	}
	defer unlock()

	written := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		refs, err := s.repos.Reference.ListByBook(dbc, bookID)
		if err != nil {
			return err
		}
		if len(refs) == 0 {
			return nil
		}
		written, err = writeBibliographyChapter(dbc, s.repos, s.names, bookID, RenderReferences(refs))
		return err
	})
	if err != nil {
		return false, err
	}
	if written {
		s.log.Info("Bibliography chapter synced", "book_id", bookID)
	}
	return written, nil
}

func (s *Service) Audit(ctx context.Context, bookID uuid.UUID) (*AuditReport, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.repos.Book.GetByID(dbc, bookID); err != nil {
		return nil, err
	}
	refs, err := s.repos.Reference.ListByBook(dbc, bookID)
	if err != nil {
		return nil, err
	}
	sections, err := s.repos.Section.ListContentByBook(dbc, bookID)
	if err != nil {
		return nil, err
	}
	return Audit(bookID, refs, sections), nil
}

// RenderReferences renders the stored list in number order.
func RenderReferences(refs []*types.GlobalReference) string {
	entries := make([]citation.Entry, 0, len(refs))
	for _, r := range refs {
		entries = append(entries, citation.Entry{Position: r.Number, Text: r.Text})
	}
	return citation.Render(entries)
}
