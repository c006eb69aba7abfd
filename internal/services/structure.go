package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pedrohsmesquita/Lectria/internal/bibliography"
	"github.com/pedrohsmesquita/Lectria/internal/data/repos"
	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	"github.com/pedrohsmesquita/Lectria/internal/generation"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/dbctx"
	apperrors "github.com/pedrohsmesquita/Lectria/internal/pkg/errors"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
	"github.com/pedrohsmesquita/Lectria/internal/sources"
)

// DiscoveryProgress is the book progress once a structure is stored; the
// remaining 90 points belong to section generation.
const DiscoveryProgress = 10

type DiscoveryResult struct {
	Chapters int `json:"chapters"`
	Sections int `json:"sections"`
}

// StructureService turns a book's sources into chapters and PENDING sections.
type StructureService interface {
	Discover(ctx context.Context, bookID uuid.UUID) (*DiscoveryResult, error)
}

type structureService struct {
	db        *gorm.DB
	log       *logger.Logger
	repos     *repos.Set
	bib       *bibliography.Service
	generator generation.Generator
	reader    sources.Reader
	notify    BookNotifier
	maxBytes  int
}

func NewStructureService(
	db *gorm.DB,
	baseLog *logger.Logger,
	set *repos.Set,
	bib *bibliography.Service,
	generator generation.Generator,
	reader sources.Reader,
	notify BookNotifier,
	maxSourceBytes int,
) StructureService {
	if maxSourceBytes <= 0 {
		maxSourceBytes = sources.DefaultMaxBytes
	}
	return &structureService{
		db:        db,
		log:       baseLog.With("service", "StructureService"),
		repos:     set,
		bib:       bib,
		generator: generator,
		reader:    reader,
		notify:    notify,
		maxBytes:  maxSourceBytes,
	}
}

func (s *structureService) Discover(ctx context.Context, bookID uuid.UUID) (*DiscoveryResult, error) {
	dbc := dbctx.Context{Ctx: ctx}
	book, err := s.repos.Book.GetByID(dbc, bookID)
	if err != nil {
		return nil, err
	}
	ok, err := s.repos.Book.TransitionStatus(dbc, bookID,
		[]string{types.BookStatusPending, types.BookStatusStructureGenerated, types.BookStatusCompleted, types.BookStatusError},
		map[string]interface{}{
			"status":        types.BookStatusDiscovering,
			"progress":      0,
			"current_step":  "Discovering structure",
			"error_message": "",
		})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: book %s is %s", apperrors.ErrConflict, bookID, book.Status)
	}
	s.publishBook(ctx, bookID)

	res, err := s.discover(ctx, book)
	if err != nil {
		s.fail(context.WithoutCancel(ctx), bookID, err)
		return nil, err
	}
	return res, nil
}

func (s *structureService) discover(ctx context.Context, book *types.Book) (*DiscoveryResult, error) {
	dbc := dbctx.Context{Ctx: ctx}
	docs, err := s.repos.SourceDocument.ListByBook(dbc, book.ID)
	if err != nil {
		return nil, err
	}
	texts, err := sources.LoadAll(ctx, s.reader, docs, s.maxBytes, 4)
	if err != nil {
		return nil, err
	}
	in := generation.DiscoveryInput{BookTitle: book.Title, Author: book.Author}
	for _, d := range docs {
		in.Sources = append(in.Sources, generation.SourceExcerpt{
			ID:    d.ID.String(),
			Kind:  d.Kind,
			Title: d.Title,
			Text:  texts[d.ID],
		})
	}

	structure, err := s.generator.DiscoverStructure(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("discover structure: %w", err)
	}
	chapters, err := PlanChapters(book.ID, structure, docs)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(structure)
	if err != nil {
		return nil, fmt.Errorf("encode structure: %w", err)
	}

	unlock, err := s.bib.Locker().Lock(ctx, book.ID)
	if err != nil {
		return nil, fmt.Errorf("lock book %s: %w", book.ID, err)
	}
	defer unlock()

	out := &DiscoveryResult{Chapters: len(chapters)}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		busy, err := s.repos.Section.AnyProcessing(dbc, book.ID)
		if err != nil {
			return err
		}
		if busy {
			return apperrors.ErrBookBusy
		}
		oldChapters, err := s.repos.Chapter.DeleteContentChapters(dbc, book.ID)
		if err != nil {
			return err
		}
		oldSections, err := s.repos.Section.DeleteByChapterIDs(dbc, oldChapters)
		if err != nil {
			return err
		}
		if err := s.repos.SectionAsset.DeleteBySectionIDs(dbc, oldSections); err != nil {
			return err
		}
		if err := s.repos.SectionReference.DeleteBySectionIDs(dbc, oldSections); err != nil {
			return err
		}

		var sections []*types.Section
		for _, ch := range chapters {
			for i := range ch.Sections {
				sec := ch.Sections[i]
				sections = append(sections, &sec)
			}
			ch.Sections = nil
		}
		if _, err := s.repos.Chapter.Create(dbc, chapters); err != nil {
			return err
		}
		if _, err := s.repos.Section.Create(dbc, sections); err != nil {
			return err
		}
		out.Sections = len(sections)

		bibCh, err := s.repos.Chapter.GetBibliography(dbc, book.ID)
		if err != nil {
			return err
		}
		if bibCh != nil {
			if err := s.repos.Chapter.UpdateFields(dbc, bibCh.ID, map[string]interface{}{"sort_order": len(chapters) + 1}); err != nil {
				return err
			}
		}

		ok, err := s.repos.Book.TransitionStatus(dbc, book.ID, []string{types.BookStatusDiscovering}, map[string]interface{}{
			"status":       types.BookStatusStructureGenerated,
			"progress":     DiscoveryProgress,
			"current_step": fmt.Sprintf("Structure ready: %d chapters, %d sections", len(chapters), len(sections)),
			"structure":    datatypes.JSON(raw),
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: book %s left DISCOVERING concurrently", apperrors.ErrConflict, book.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Book structure stored", "book_id", book.ID, "chapters", out.Chapters, "sections", out.Sections)
	s.publishBook(ctx, book.ID)
	return out, nil
}

// PlanChapters validates a discovered structure against the book's sources.
// A section naming an unknown transcript falls back to the first transcript;
// an unknown slide id is dropped. Empty chapters and untitled sections are
// skipped.
func PlanChapters(bookID uuid.UUID, st *generation.Structure, docs []*types.SourceDocument) ([]*types.Chapter, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: empty structure", apperrors.ErrInvalidArgument)
	}
	transcripts := map[string]uuid.UUID{}
	slides := map[string]uuid.UUID{}
	var firstTranscript *uuid.UUID
	for _, d := range docs {
		switch d.Kind {
		case types.SourceKindTranscript:
			transcripts[d.ID.String()] = d.ID
			if firstTranscript == nil {
				id := d.ID
				firstTranscript = &id
			}
		case types.SourceKindSlide:
			slides[d.ID.String()] = d.ID
		}
	}
	if firstTranscript == nil {
		return nil, fmt.Errorf("%w: book %s has no transcript sources", apperrors.ErrInvalidArgument, bookID)
	}

	var out []*types.Chapter
	for _, cp := range st.Chapters {
		title := strings.TrimSpace(cp.Title)
		if title == "" {
			continue
		}
		ch := &types.Chapter{
			ID:     uuid.New(),
			BookID: bookID,
			Title:  title,
			Order:  len(out) + 1,
		}
		for _, sp := range cp.Sections {
			stitle := strings.TrimSpace(sp.Title)
			if stitle == "" {
				continue
			}
			tid := *firstTranscript
			if id, ok := transcripts[strings.ToLower(strings.TrimSpace(sp.TranscriptID))]; ok {
				tid = id
			}
			sec := types.Section{
				ID:           uuid.New(),
				ChapterID:    ch.ID,
				BookID:       bookID,
				Title:        stitle,
				Order:        len(ch.Sections) + 1,
				Status:       types.SectionStatusPending,
				TranscriptID: &tid,
			}
			if id, ok := slides[strings.ToLower(strings.TrimSpace(sp.SlideID))]; ok {
				sid := id
				sec.SlideID = &sid
				sec.StartPage = sp.StartPage
				sec.EndPage = sp.EndPage
			}
			ch.Sections = append(ch.Sections, sec)
		}
		if len(ch.Sections) == 0 {
			continue
		}
		out = append(out, ch)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: structure has no usable chapters", apperrors.ErrInvalidArgument)
	}
	return out, nil
}

func (s *structureService) fail(ctx context.Context, bookID uuid.UUID, cause error) {
	ok, err := s.repos.Book.TransitionStatus(dbctx.Context{Ctx: ctx}, bookID, []string{types.BookStatusDiscovering}, map[string]interface{}{
		"status":        types.BookStatusError,
		"error_message": truncateMessage(cause.Error(), 500),
	})
	if err != nil {
		s.log.Error("Failed to mark book error", "book_id", bookID, "error", err)
		return
	}
	if ok {
		s.publishBook(ctx, bookID)
	}
}

func (s *structureService) publishBook(ctx context.Context, bookID uuid.UUID) {
	if book, err := s.repos.Book.GetByID(dbctx.Context{Ctx: ctx}, bookID); err == nil {
		s.notify.BookUpdated(book)
	}
}
