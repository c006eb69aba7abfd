package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pedrohsmesquita/Lectria/internal/data/repos"
	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	"github.com/pedrohsmesquita/Lectria/internal/generation"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/dbctx"
	apperrors "github.com/pedrohsmesquita/Lectria/internal/pkg/errors"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/httpx"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
	"github.com/pedrohsmesquita/Lectria/internal/sources"
)

type GenerationConfig struct {
	MaxAttempts    int
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	MaxSourceBytes int
}

func (c GenerationConfig) withDefaults() GenerationConfig {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 5
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 60 * time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 15 * time.Minute
	}
	if c.MaxSourceBytes <= 0 {
		c.MaxSourceBytes = sources.DefaultMaxBytes
	}
	return c
}

// SectionGenerationService drives one section from PENDING (or ERROR, or
// SUCCESS on regeneration) to SUCCESS or ERROR.
type SectionGenerationService interface {
	Generate(ctx context.Context, sectionID uuid.UUID) (*ApplyResult, error)
}

type sectionGenerationService struct {
	log       *logger.Logger
	repos     *repos.Set
	content   ContentService
	generator generation.Generator
	reader    sources.Reader
	notify    BookNotifier
	cfg       GenerationConfig
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewSectionGenerationService(
	baseLog *logger.Logger,
	set *repos.Set,
	content ContentService,
	generator generation.Generator,
	reader sources.Reader,
	notify BookNotifier,
	cfg GenerationConfig,
) SectionGenerationService {
	return &sectionGenerationService{
		log:       baseLog.With("service", "SectionGenerationService"),
		repos:     set,
		content:   content,
		generator: generator,
		reader:    reader,
		notify:    notify,
		cfg:       cfg.withDefaults(),
		sleep:     httpx.Sleep,
	}
}

func (s *sectionGenerationService) Generate(ctx context.Context, sectionID uuid.UUID) (*ApplyResult, error) {
	sec, err := s.content.MarkProcessing(ctx, sectionID)
	if err != nil {
		return nil, err
	}

	res, err := s.generate(ctx, sec)
	if err != nil {
		if ctx.Err() != nil {
			if _, rerr := s.content.Release(context.WithoutCancel(ctx), sec.ID); rerr != nil {
				s.log.Error("Failed to release interrupted section", "section_id", sec.ID, "error", rerr)
			}
			return nil, err
		}
		if merr := s.content.MarkError(context.WithoutCancel(ctx), sec.ID, err); merr != nil {
			s.log.Error("Failed to mark section error", "section_id", sec.ID, "error", merr)
		}
		s.failBook(context.WithoutCancel(ctx), sec.BookID, sec.Title, err)
		return nil, err
	}
	return res, nil
}

func (s *sectionGenerationService) generate(ctx context.Context, sec *types.Section) (*ApplyResult, error) {
	in, slidePath, err := s.buildInput(ctx, sec)
	if err != nil {
		return nil, err
	}

	var draft *generation.SectionDraft
	for attempt := 1; ; attempt++ {
		draft, err = s.generator.GenerateSection(ctx, in)
		if err == nil {
			break
		}
		if !errors.Is(err, apperrors.ErrResourceExhausted) || attempt >= s.cfg.MaxAttempts {
			return nil, fmt.Errorf("generate section %s: %w", sec.ID, err)
		}
		wait := httpx.ExponentialBackoff(s.cfg.BackoffBase, attempt, s.cfg.BackoffMax)
		s.log.Warn("Generator rate limited; backing off",
			"section_id", sec.ID,
			"attempt", attempt,
			"max_attempts", s.cfg.MaxAttempts,
			"wait", wait.String(),
		)
		if serr := s.sleep(ctx, wait); serr != nil {
			return nil, serr
		}
	}

	return s.content.ApplyDraft(ctx, sec.ID, draft, slidePath)
}

func (s *sectionGenerationService) buildInput(ctx context.Context, sec *types.Section) (generation.SectionInput, string, error) {
	dbc := dbctx.Context{Ctx: ctx}
	in := generation.SectionInput{
		SectionTitle: sec.Title,
		StartPage:    sec.StartPage,
		EndPage:      sec.EndPage,
	}
	if sec.TranscriptID == nil {
		return in, "", fmt.Errorf("%w: section %s has no transcript", apperrors.ErrInvalidArgument, sec.ID)
	}

	book, err := s.repos.Book.GetByID(dbc, sec.BookID)
	if err != nil {
		return in, "", err
	}
	chapter, err := s.repos.Chapter.GetByID(dbc, sec.ChapterID)
	if err != nil {
		return in, "", err
	}
	in.BookTitle = book.Title
	in.ChapterTitle = chapter.Title

	docs, err := s.repos.SourceDocument.ListByBook(dbc, sec.BookID)
	if err != nil {
		return in, "", err
	}
	var transcript, slide *types.SourceDocument
	for _, d := range docs {
		if d.ID == *sec.TranscriptID {
			transcript = d
		}
		if sec.SlideID != nil && d.ID == *sec.SlideID {
			slide = d
		}
	}
	if transcript == nil {
		return in, "", fmt.Errorf("%w: transcript %s for section %s", apperrors.ErrNotFound, *sec.TranscriptID, sec.ID)
	}
	wanted := []*types.SourceDocument{transcript}
	if slide != nil {
		wanted = append(wanted, slide)
	}
	texts, err := sources.LoadAll(ctx, s.reader, wanted, s.cfg.MaxSourceBytes, 2)
	if err != nil {
		return in, "", err
	}
	in.Transcript = texts[transcript.ID]
	slidePath := ""
	if slide != nil {
		in.Slides = texts[slide.ID]
		slidePath = slide.StoragePath
	}

	refs, err := s.repos.Reference.ListByBook(dbc, sec.BookID)
	if err != nil {
		return in, "", err
	}
	for _, r := range refs {
		in.Known = append(in.Known, generation.KnownReference{Key: r.Key, Number: r.Number})
	}
	return in, slidePath, nil
}

func (s *sectionGenerationService) failBook(ctx context.Context, bookID uuid.UUID, title string, cause error) {
	dbc := dbctx.Context{Ctx: ctx}
	ok, err := s.repos.Book.TransitionStatus(dbc, bookID,
		[]string{types.BookStatusGenerating, types.BookStatusStructureGenerated, types.BookStatusCompleted},
		map[string]interface{}{
			"status":        types.BookStatusError,
			"error_message": truncateMessage(fmt.Sprintf("section %q: %v", title, cause), 500),
		})
	if err != nil {
		s.log.Error("Failed to mark book error", "book_id", bookID, "error", err)
		return
	}
	if !ok {
		return
	}
	if book, err := s.repos.Book.GetByID(dbc, bookID); err == nil {
		s.notify.BookUpdated(book)
	}
}
