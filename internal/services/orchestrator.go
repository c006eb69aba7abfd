package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pedrohsmesquita/Lectria/internal/bibliography"
	"github.com/pedrohsmesquita/Lectria/internal/data/repos"
	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/dbctx"
	apperrors "github.com/pedrohsmesquita/Lectria/internal/pkg/errors"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
)

type GenerationRunResult struct {
	Generated int `json:"generated"`
	Total     int `json:"total"`
}

// StepFunc receives the book's step text and progress after every move.
type StepFunc func(step string, progress int)

// OrchestratorService generates a book's sections one at a time in reading
// order until no PENDING section remains.
type OrchestratorService interface {
	Run(ctx context.Context, bookID uuid.UUID, onStep StepFunc) (*GenerationRunResult, error)
}

type orchestratorService struct {
	log     *logger.Logger
	repos   *repos.Set
	bib     *bibliography.Service
	section SectionGenerationService
	notify  BookNotifier
}

func NewOrchestratorService(baseLog *logger.Logger, set *repos.Set, bib *bibliography.Service, section SectionGenerationService, notify BookNotifier) OrchestratorService {
	return &orchestratorService{
		log:     baseLog.With("service", "OrchestratorService"),
		repos:   set,
		bib:     bib,
		section: section,
		notify:  notify,
	}
}

// BookProgress maps completed sections onto the 10..100 band that follows
// discovery.
func BookProgress(completed, total int) int {
	if total <= 0 {
		return 100
	}
	if completed > total {
		completed = total
	}
	return DiscoveryProgress + completed*(100-DiscoveryProgress)/total
}

// StepTitle shortens long section titles for the progress line.
func StepTitle(title string) string {
	r := []rune(title)
	if len(r) <= 20 {
		return title
	}
	return string(r[:17]) + "..."
}

func (s *orchestratorService) Run(ctx context.Context, bookID uuid.UUID, onStep StepFunc) (*GenerationRunResult, error) {
	if onStep == nil {
		onStep = func(string, int) {}
	}
	dbc := dbctx.Context{Ctx: ctx}
	book, err := s.repos.Book.GetByID(dbc, bookID)
	if err != nil {
		return nil, err
	}
	ok, err := s.repos.Book.TransitionStatus(dbc, bookID,
		[]string{types.BookStatusStructureGenerated, types.BookStatusGenerating, types.BookStatusCompleted, types.BookStatusError},
		map[string]interface{}{"status": types.BookStatusGenerating, "error_message": ""})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: book %s is %s", apperrors.ErrConflict, bookID, book.Status)
	}
	if err := s.resetUnfinished(ctx, bookID); err != nil {
		return nil, err
	}

	out := &GenerationRunResult{}
	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		counts, err := s.repos.Section.CountByStatus(dbc, bookID)
		if err != nil {
			return out, err
		}
		total := 0
		for _, n := range counts {
			total += n
		}
		completed := counts[types.SectionStatusSuccess]
		out.Total = total

		next, err := s.repos.Section.NextPending(dbc, bookID)
		if err != nil {
			return out, err
		}
		if next == nil {
			return out, s.complete(ctx, bookID)
		}

		step := fmt.Sprintf("Generating: %s (%d/%d)", StepTitle(next.Title), completed+1, total)
		pct := BookProgress(completed, total)
		if err := s.repos.Book.UpdateFields(dbc, bookID, map[string]interface{}{
			"progress":     pct,
			"current_step": step,
		}); err != nil {
			return out, err
		}
		s.publishBook(ctx, bookID)
		onStep(step, pct)

		if _, err := s.section.Generate(ctx, next.ID); err != nil {
			return out, err
		}
		out.Generated++
	}
}

// resetUnfinished sends ERROR sections back to PENDING so a restarted run
// picks them up again. PROCESSING sections left behind by a run that died are
// reset too, unless a regeneration job still owns them.
func (s *orchestratorService) resetUnfinished(ctx context.Context, bookID uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	sections, err := s.repos.Section.ListContentByBook(dbc, bookID)
	if err != nil {
		return err
	}
	for _, sec := range sections {
		switch sec.Status {
		case types.SectionStatusError:
		case types.SectionStatusProcessing:
			owned, err := s.repos.JobRun.HasRunnableForEntity(dbc, "section", sec.ID, JobTypeSectionGenerate)
			if err != nil {
				return err
			}
			if owned {
				continue
			}
			s.log.Warn("Resetting section left in PROCESSING", "book_id", bookID, "section_id", sec.ID)
		default:
			continue
		}
		if _, err := s.repos.Section.TransitionStatus(dbc, sec.ID, []string{sec.Status}, map[string]interface{}{
			"status":        types.SectionStatusPending,
			"error_message": "",
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *orchestratorService) complete(ctx context.Context, bookID uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	counts, err := s.repos.Section.CountByStatus(dbc, bookID)
	if err != nil {
		return err
	}
	if unfinished := unfinishedSections(counts); unfinished > 0 {
		return fmt.Errorf("%w: book %s has %d unfinished sections", apperrors.ErrBookBusy, bookID, unfinished)
	}
	if _, err := s.bib.Sync(ctx, bookID); err != nil {
		return fmt.Errorf("sync bibliography: %w", err)
	}
	ok, err := s.repos.Book.TransitionStatus(dbc, bookID, []string{types.BookStatusGenerating}, map[string]interface{}{
		"status":       types.BookStatusCompleted,
		"progress":     100,
		"current_step": "Completed",
	})
	if err != nil {
		return err
	}
	if ok {
		s.log.Info("Book generation completed", "book_id", bookID)
		s.publishBook(ctx, bookID)
	}
	return nil
}

func unfinishedSections(counts map[string]int) int {
	n := 0
	for status, c := range counts {
		if status != types.SectionStatusSuccess {
			n += c
		}
	}
	return n
}

func (s *orchestratorService) publishBook(ctx context.Context, bookID uuid.UUID) {
	if book, err := s.repos.Book.GetByID(dbctx.Context{Ctx: ctx}, bookID); err == nil {
		s.notify.BookUpdated(book)
	}
}
