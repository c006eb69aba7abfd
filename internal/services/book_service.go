package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pedrohsmesquita/Lectria/internal/bibliography"
	"github.com/pedrohsmesquita/Lectria/internal/data/repos"
	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/dbctx"
	apperrors "github.com/pedrohsmesquita/Lectria/internal/pkg/errors"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
)

type SourceInput struct {
	Kind        string `json:"kind"`
	StoragePath string `json:"storage_path"`
	Title       string `json:"title"`
}

type SectionUpdate struct {
	Title           *string `json:"title"`
	ContentMarkdown *string `json:"content_markdown"`
}

type BookService interface {
	Create(ctx context.Context, title, author string) (*types.Book, error)
	Get(ctx context.Context, bookID uuid.UUID) (*types.Book, error)
	List(ctx context.Context, limit int) ([]*types.Book, error)
	AddSources(ctx context.Context, bookID uuid.UUID, in []SourceInput) ([]*types.SourceDocument, error)
	ListSources(ctx context.Context, bookID uuid.UUID) ([]*types.SourceDocument, error)

	StartDiscovery(ctx context.Context, bookID uuid.UUID) (*types.JobRun, error)
	StartGeneration(ctx context.Context, bookID uuid.UUID) (*types.JobRun, error)
	RegenerateSection(ctx context.Context, sectionID uuid.UUID) (*types.JobRun, error)

	Chapters(ctx context.Context, bookID uuid.UUID) ([]*types.Chapter, error)
	ReorderChapters(ctx context.Context, bookID uuid.UUID, chapterIDs []uuid.UUID) ([]*types.Chapter, error)
	ReorderSections(ctx context.Context, chapterID uuid.UUID, sectionIDs []uuid.UUID) ([]*types.Section, error)
	RenameChapter(ctx context.Context, chapterID uuid.UUID, title string) (*types.Chapter, error)
	UpdateSection(ctx context.Context, sectionID uuid.UUID, in SectionUpdate) (*types.Section, error)

	AddAsset(ctx context.Context, sectionID uuid.UUID, in AssetInput) (*types.SectionAsset, error)
	UpdateAsset(ctx context.Context, assetID uuid.UUID, in AssetUpdate) (*types.SectionAsset, error)
	DeleteAsset(ctx context.Context, assetID uuid.UUID) error

	Bibliography(ctx context.Context, bookID uuid.UUID) (*bibliography.View, error)
	ReconcileBibliography(ctx context.Context, bookID uuid.UUID, document string) (*bibliography.Result, error)
	Audit(ctx context.Context, bookID uuid.UUID) (*bibliography.AuditReport, error)
	Export(ctx context.Context, bookID uuid.UUID) (*ExportPayload, error)
}

type bookService struct {
	db     *gorm.DB
	log    *logger.Logger
	repos  *repos.Set
	bib    *bibliography.Service
	jobs   JobService
	notify BookNotifier
}

func NewBookService(db *gorm.DB, baseLog *logger.Logger, set *repos.Set, bib *bibliography.Service, jobs JobService, notify BookNotifier) BookService {
	return &bookService{
		db:     db,
		log:    baseLog.With("service", "BookService"),
		repos:  set,
		bib:    bib,
		jobs:   jobs,
		notify: notify,
	}
}

func (s *bookService) Create(ctx context.Context, title, author string) (*types.Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", apperrors.ErrInvalidArgument)
	}
	b := &types.Book{Title: title, Author: strings.TrimSpace(author), Status: types.BookStatusPending}
	return s.repos.Book.Create(dbctx.Context{Ctx: ctx}, b)
}

func (s *bookService) Get(ctx context.Context, bookID uuid.UUID) (*types.Book, error) {
	return s.repos.Book.GetByID(dbctx.Context{Ctx: ctx}, bookID)
}

func (s *bookService) List(ctx context.Context, limit int) ([]*types.Book, error) {
	return s.repos.Book.List(dbctx.Context{Ctx: ctx}, limit)
}

func (s *bookService) AddSources(ctx context.Context, bookID uuid.UUID, in []SourceInput) ([]*types.SourceDocument, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: no sources given", apperrors.ErrInvalidArgument)
	}
	rows := make([]*types.SourceDocument, 0, len(in))
	for i, src := range in {
		kind := strings.ToLower(strings.TrimSpace(src.Kind))
		if kind != types.SourceKindTranscript && kind != types.SourceKindSlide {
			return nil, fmt.Errorf("%w: source %d: kind must be transcript or slide", apperrors.ErrInvalidArgument, i)
		}
		path := strings.TrimSpace(src.StoragePath)
		if path == "" {
			return nil, fmt.Errorf("%w: source %d: storage_path is required", apperrors.ErrInvalidArgument, i)
		}
		rows = append(rows, &types.SourceDocument{
			BookID:      bookID,
			Kind:        kind,
			Title:       strings.TrimSpace(src.Title),
			StoragePath: path,
		})
	}
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.repos.Book.GetByID(dbc, bookID); err != nil {
		return nil, err
	}
	return s.repos.SourceDocument.Create(dbc, rows)
}

func (s *bookService) ListSources(ctx context.Context, bookID uuid.UUID) ([]*types.SourceDocument, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.repos.Book.GetByID(dbc, bookID); err != nil {
		return nil, err
	}
	return s.repos.SourceDocument.ListByBook(dbc, bookID)
}

func (s *bookService) StartDiscovery(ctx context.Context, bookID uuid.UUID) (*types.JobRun, error) {
	dbc := dbctx.Context{Ctx: ctx}
	book, err := s.repos.Book.GetByID(dbc, bookID)
	if err != nil {
		return nil, err
	}
	if book.Status == types.BookStatusGenerating {
		return nil, fmt.Errorf("%w: book %s is generating", apperrors.ErrConflict, bookID)
	}
	busy, err := s.repos.Section.AnyProcessing(dbc, bookID)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, apperrors.ErrBookBusy
	}
	docs, err := s.repos.SourceDocument.ListByBook(dbc, bookID)
	if err != nil {
		return nil, err
	}
	hasTranscript := false
	for _, d := range docs {
		if d.Kind == types.SourceKindTranscript {
			hasTranscript = true
			break
		}
	}
	if !hasTranscript {
		return nil, fmt.Errorf("%w: book %s has no transcript sources", apperrors.ErrInvalidArgument, bookID)
	}
	job, _, err := s.jobs.EnqueueUnique(dbc, JobTypeBookDiscovery, "book", bookID, map[string]any{"book_id": bookID.String()})
	return job, err
}

func (s *bookService) StartGeneration(ctx context.Context, bookID uuid.UUID) (*types.JobRun, error) {
	dbc := dbctx.Context{Ctx: ctx}
	book, err := s.repos.Book.GetByID(dbc, bookID)
	if err != nil {
		return nil, err
	}
	switch book.Status {
	case types.BookStatusStructureGenerated, types.BookStatusGenerating, types.BookStatusCompleted, types.BookStatusError:
	default:
		return nil, fmt.Errorf("%w: book %s has no structure yet (status %s)", apperrors.ErrConflict, bookID, book.Status)
	}
	job, _, err := s.jobs.EnqueueUnique(dbc, JobTypeBookContent, "book", bookID, map[string]any{"book_id": bookID.String()})
	return job, err
}

func (s *bookService) RegenerateSection(ctx context.Context, sectionID uuid.UUID) (*types.JobRun, error) {
	dbc := dbctx.Context{Ctx: ctx}
	sec, err := s.repos.Section.GetByID(dbc, sectionID)
	if err != nil {
		return nil, err
	}
	ch, err := s.repos.Chapter.GetByID(dbc, sec.ChapterID)
	if err != nil {
		return nil, err
	}
	if ch.IsBibliography {
		return nil, fmt.Errorf("%w: the bibliography is edited, not generated", apperrors.ErrInvalidArgument)
	}
	if !types.CanTransitionSection(sec.Status, types.SectionStatusProcessing) {
		return nil, fmt.Errorf("%w: section %s is %s", apperrors.ErrConflict, sectionID, sec.Status)
	}
	job, _, err := s.jobs.EnqueueUnique(dbc, JobTypeSectionGenerate, "section", sectionID, map[string]any{
		"book_id":    sec.BookID.String(),
		"section_id": sectionID.String(),
	})
	return job, err
}

func (s *bookService) Chapters(ctx context.Context, bookID uuid.UUID) ([]*types.Chapter, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.repos.Book.GetByID(dbc, bookID); err != nil {
		return nil, err
	}
	return s.repos.Chapter.ListByBookWithSections(dbc, bookID)
}

// withStructureLock runs fn under the book lock in a transaction that first
// refuses to continue while any section of the book is PROCESSING.
func (s *bookService) withStructureLock(ctx context.Context, bookID uuid.UUID, fn func(dbc dbctx.Context) error) error {
	unlock, err := s.bib.Locker().Lock(ctx, bookID)
	if err != nil {
		return fmt.Errorf("lock book %s: %w", bookID, err)
	}
	defer unlock()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		busy, err := s.repos.Section.AnyProcessing(dbc, bookID)
		if err != nil {
			return err
		}
		if busy {
			return apperrors.ErrBookBusy
		}
		return fn(dbc)
	})
}

// applyOrder returns ids in their new order: the listed ones first, then the
// unlisted ones in their current order. Unknown or repeated ids are rejected.
func applyOrder(current []uuid.UUID, wanted []uuid.UUID) ([]uuid.UUID, error) {
	known := make(map[uuid.UUID]bool, len(current))
	for _, id := range current {
		known[id] = true
	}
	seen := make(map[uuid.UUID]bool, len(wanted))
	out := make([]uuid.UUID, 0, len(current))
	for _, id := range wanted {
		if !known[id] {
			return nil, fmt.Errorf("%w: id %s does not belong here", apperrors.ErrInvalidArgument, id)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: id %s listed twice", apperrors.ErrInvalidArgument, id)
		}
		seen[id] = true
		out = append(out, id)
	}
	for _, id := range current {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *bookService) ReorderChapters(ctx context.Context, bookID uuid.UUID, chapterIDs []uuid.UUID) ([]*types.Chapter, error) {
	if _, err := s.repos.Book.GetByID(dbctx.Context{Ctx: ctx}, bookID); err != nil {
		return nil, err
	}
	var out []*types.Chapter
	err := s.withStructureLock(ctx, bookID, func(dbc dbctx.Context) error {
		chapters, err := s.repos.Chapter.ListByBook(dbc, bookID)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*types.Chapter, len(chapters))
		var content []uuid.UUID
		var bib *types.Chapter
		for _, ch := range chapters {
			byID[ch.ID] = ch
			if ch.IsBibliography {
				bib = ch
				continue
			}
			content = append(content, ch.ID)
		}
		wanted := make([]uuid.UUID, 0, len(chapterIDs))
		for _, id := range chapterIDs {
			// the bibliography chapter always stays last
			if bib != nil && id == bib.ID {
				continue
			}
			wanted = append(wanted, id)
		}
		order, err := applyOrder(content, wanted)
		if err != nil {
			return err
		}
		if bib != nil {
			order = append(order, bib.ID)
		}
		for i, id := range order {
			ch := byID[id]
			if ch.Order == i+1 {
				continue
			}
			if err := s.repos.Chapter.UpdateFields(dbc, id, map[string]interface{}{"sort_order": i + 1}); err != nil {
				return err
			}
			ch.Order = i + 1
		}
		out = chapters
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	s.log.Info("Chapters reordered", "book_id", bookID, "count", len(out))
	return out, nil
}

func (s *bookService) ReorderSections(ctx context.Context, chapterID uuid.UUID, sectionIDs []uuid.UUID) ([]*types.Section, error) {
	ch, err := s.repos.Chapter.GetByID(dbctx.Context{Ctx: ctx}, chapterID)
	if err != nil {
		return nil, err
	}
	var out []*types.Section
	err = s.withStructureLock(ctx, ch.BookID, func(dbc dbctx.Context) error {
		sections, err := s.repos.Section.ListByChapter(dbc, chapterID)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*types.Section, len(sections))
		current := make([]uuid.UUID, 0, len(sections))
		for _, sec := range sections {
			byID[sec.ID] = sec
			current = append(current, sec.ID)
		}
		order, err := applyOrder(current, sectionIDs)
		if err != nil {
			return err
		}
		for i, id := range order {
			sec := byID[id]
			if sec.Order == i+1 {
				continue
			}
			if err := s.repos.Section.UpdateFields(dbc, id, map[string]interface{}{"sort_order": i + 1}); err != nil {
				return err
			}
			sec.Order = i + 1
		}
		out = sections
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (s *bookService) RenameChapter(ctx context.Context, chapterID uuid.UUID, title string) (*types.Chapter, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", apperrors.ErrInvalidArgument)
	}
	dbc := dbctx.Context{Ctx: ctx}
	ch, err := s.repos.Chapter.GetByID(dbc, chapterID)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Chapter.UpdateFields(dbc, chapterID, map[string]interface{}{"title": title}); err != nil {
		return nil, err
	}
	ch.Title = title
	return ch, nil
}

// UpdateSection stores manual edits verbatim. Bibliography content goes
// through ReconcileBibliography so numbering stays consistent.
func (s *bookService) UpdateSection(ctx context.Context, sectionID uuid.UUID, in SectionUpdate) (*types.Section, error) {
	if in.Title == nil && in.ContentMarkdown == nil {
		return nil, fmt.Errorf("%w: nothing to update", apperrors.ErrInvalidArgument)
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", apperrors.ErrInvalidArgument)
	}
	sec, err := s.repos.Section.GetByID(dbctx.Context{Ctx: ctx}, sectionID)
	if err != nil {
		return nil, err
	}
	err = s.withStructureLock(ctx, sec.BookID, func(dbc dbctx.Context) error {
		updates := map[string]interface{}{}
		if in.Title != nil {
			updates["title"] = strings.TrimSpace(*in.Title)
		}
		if in.ContentMarkdown != nil {
			ch, err := s.repos.Chapter.GetByID(dbc, sec.ChapterID)
			if err != nil {
				return err
			}
			if ch.IsBibliography {
				return fmt.Errorf("%w: edit the bibliography through the bibliography endpoint", apperrors.ErrInvalidArgument)
			}
			updates["content_markdown"] = *in.ContentMarkdown
		}
		return s.repos.Section.UpdateFields(dbc, sectionID, updates)
	})
	if err != nil {
		return nil, err
	}
	updated, err := s.repos.Section.GetByID(dbctx.Context{Ctx: ctx}, sectionID)
	if err != nil {
		return nil, err
	}
	s.notify.SectionUpdated(updated.BookID, updated)
	return updated, nil
}

func (s *bookService) Bibliography(ctx context.Context, bookID uuid.UUID) (*bibliography.View, error) {
	return s.bib.Get(ctx, bookID)
}

func (s *bookService) ReconcileBibliography(ctx context.Context, bookID uuid.UUID, document string) (*bibliography.Result, error) {
	res, err := s.bib.Reconcile(ctx, bookID, document)
	if err != nil {
		return nil, err
	}
	s.notify.BibliographyReconciled(bookID, res)
	return res, nil
}

func (s *bookService) Audit(ctx context.Context, bookID uuid.UUID) (*bibliography.AuditReport, error) {
	return s.bib.Audit(ctx, bookID)
}
