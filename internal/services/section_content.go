package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pedrohsmesquita/Lectria/internal/bibliography"
	"github.com/pedrohsmesquita/Lectria/internal/citation"
	"github.com/pedrohsmesquita/Lectria/internal/data/repos"
	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	"github.com/pedrohsmesquita/Lectria/internal/generation"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/dbctx"
	apperrors "github.com/pedrohsmesquita/Lectria/internal/pkg/errors"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
)

// ApplyResult describes what a generated draft turned into once stored.
type ApplyResult struct {
	Section    *types.Section `json:"section"`
	Numbers    map[string]int `json:"numbers"`
	Unresolved []string       `json:"unresolved,omitempty"`
	Assets     int            `json:"assets"`
}

// ContentService owns section status moves and the storage of generated
// drafts.
type ContentService interface {
	MarkProcessing(ctx context.Context, sectionID uuid.UUID) (*types.Section, error)
	// ApplyDraft resolves the draft's references, rewrites its [REF:key]
	// markers into numbers, stores assets and moves the section to SUCCESS.
	// All of it commits together under the book lock.
	ApplyDraft(ctx context.Context, sectionID uuid.UUID, draft *generation.SectionDraft, slidePath string) (*ApplyResult, error)
	MarkError(ctx context.Context, sectionID uuid.UUID, cause error) error
	// Release moves a PROCESSING section back to PENDING. It reports false
	// when the section was not PROCESSING.
	Release(ctx context.Context, sectionID uuid.UUID) (bool, error)
}

type contentService struct {
	db     *gorm.DB
	log    *logger.Logger
	repos  *repos.Set
	bib    *bibliography.Service
	notify BookNotifier
}

func NewContentService(db *gorm.DB, baseLog *logger.Logger, set *repos.Set, bib *bibliography.Service, notify BookNotifier) ContentService {
	return &contentService{
		db:     db,
		log:    baseLog.With("service", "ContentService"),
		repos:  set,
		bib:    bib,
		notify: notify,
	}
}

func (s *contentService) MarkProcessing(ctx context.Context, sectionID uuid.UUID) (*types.Section, error) {
	dbc := dbctx.Context{Ctx: ctx}
	sec, err := s.repos.Section.GetByID(dbc, sectionID)
	if err != nil {
		return nil, err
	}
	if err := types.ValidateSectionTransition(sec.Status, types.SectionStatusProcessing); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrConflict, err)
	}
	ok, err := s.repos.Section.TransitionStatus(dbc, sectionID, []string{sec.Status}, map[string]interface{}{
		"status":        types.SectionStatusProcessing,
		"error_message": "",
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: section %s changed status concurrently", apperrors.ErrConflict, sectionID)
	}
	sec.Status = types.SectionStatusProcessing
	sec.ErrorMessage = ""
	s.notify.SectionUpdated(sec.BookID, sec)
	return sec, nil
}

func (s *contentService) ApplyDraft(ctx context.Context, sectionID uuid.UUID, draft *generation.SectionDraft, slidePath string) (*ApplyResult, error) {
	if draft == nil || strings.TrimSpace(draft.ContentMarkdown) == "" {
		return nil, fmt.Errorf("%w: empty draft", apperrors.ErrInvalidArgument)
	}
	sec, err := s.repos.Section.GetByID(dbctx.Context{Ctx: ctx}, sectionID)
	if err != nil {
		return nil, err
	}
	bookID := sec.BookID

	unlock, err := s.bib.Locker().Lock(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("lock book %s: %w", bookID, err)
	}
	defer unlock()

	out := &ApplyResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		cur, err := s.repos.Section.GetByID(dbc, sectionID)
		if err != nil {
			return err
		}
		if cur.Status != types.SectionStatusProcessing {
			return fmt.Errorf("%w: section %s is %s, not PROCESSING", apperrors.ErrConflict, sectionID, cur.Status)
		}

		// regeneration replaces the section's links; references stay book-wide
		if err := s.repos.SectionReference.DeleteBySectionIDs(dbc, []uuid.UUID{sectionID}); err != nil {
			return err
		}
		numbers, err := s.bib.Resolver().Resolve(dbc, bookID, sectionID, draft.Bibliography)
		if err != nil {
			return err
		}
		markdown, unresolved := citation.RewriteKeys(draft.ContentMarkdown, numbers)
		if len(unresolved) > 0 {
			s.log.Warn("Unresolved reference markers left in section",
				"book_id", bookID,
				"section_id", sectionID,
				"keys", unresolved,
			)
		}

		assets := make([]*types.SectionAsset, 0, len(draft.Assets))
		for _, a := range draft.Assets {
			ph := strings.TrimSpace(a.Placeholder)
			if ph == "" {
				continue
			}
			meta := map[string]any{}
			if a.Crop != nil {
				meta["crop_info"] = a.Crop
			}
			if slidePath != "" {
				meta["slide_storage_path"] = slidePath
			}
			raw, _ := json.Marshal(meta)
			assets = append(assets, &types.SectionAsset{
				SectionID:   sectionID,
				Placeholder: ph,
				Caption:     strings.TrimSpace(a.Caption),
				SourceType:  types.AssetSourceGenerated,
				SlidePage:   a.SlidePage,
				Metadata:    datatypes.JSON(raw),
			})
		}
		if _, err := s.repos.SectionAsset.ReplaceForSection(dbc, sectionID, assets); err != nil {
			return err
		}

		ok, err := s.repos.Section.TransitionStatus(dbc, sectionID, []string{types.SectionStatusProcessing}, map[string]interface{}{
			"status":           types.SectionStatusSuccess,
			"content_markdown": markdown,
			"error_message":    "",
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: section %s left PROCESSING concurrently", apperrors.ErrConflict, sectionID)
		}

		cur.Status = types.SectionStatusSuccess
		cur.ContentMarkdown = &markdown
		cur.ErrorMessage = ""
		out.Section = cur
		out.Numbers = numbers
		out.Unresolved = unresolved
		out.Assets = len(assets)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Section draft applied",
		"book_id", bookID,
		"section_id", sectionID,
		"references", len(out.Numbers),
		"assets", out.Assets,
	)
	s.notify.SectionUpdated(bookID, out.Section)
	return out, nil
}

func (s *contentService) MarkError(ctx context.Context, sectionID uuid.UUID, cause error) error {
	msg := "generation failed"
	if cause != nil {
		msg = truncateMessage(cause.Error(), 500)
	}
	dbc := dbctx.Context{Ctx: ctx}
	ok, err := s.repos.Section.TransitionStatus(dbc, sectionID, []string{types.SectionStatusProcessing}, map[string]interface{}{
		"status":        types.SectionStatusError,
		"error_message": msg,
		"updated_at":    time.Now(),
	})
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if sec, gerr := s.repos.Section.GetByID(dbc, sectionID); gerr == nil {
		s.notify.SectionUpdated(sec.BookID, sec)
	}
	return nil
}

func (s *contentService) Release(ctx context.Context, sectionID uuid.UUID) (bool, error) {
	dbc := dbctx.Context{Ctx: ctx}
	ok, err := s.repos.Section.TransitionStatus(dbc, sectionID, []string{types.SectionStatusProcessing}, map[string]interface{}{
		"status":        types.SectionStatusPending,
		"error_message": "",
		"updated_at":    time.Now(),
	})
	if err != nil || !ok {
		return ok, err
	}
	if sec, gerr := s.repos.Section.GetByID(dbc, sectionID); gerr == nil {
		s.notify.SectionUpdated(sec.BookID, sec)
	}
	return true, nil
}

func truncateMessage(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
