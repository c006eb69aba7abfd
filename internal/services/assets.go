package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pedrohsmesquita/Lectria/internal/citation"
	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/dbctx"
	apperrors "github.com/pedrohsmesquita/Lectria/internal/pkg/errors"
)

// AssetInput registers an image that was already stored somewhere readable
// by the renderer. Uploading the file itself happens outside this service.
type AssetInput struct {
	Caption     string `json:"caption"`
	StoragePath string `json:"storage_path"`
}

type AssetUpdate struct {
	Caption     *string `json:"caption"`
	StoragePath *string `json:"storage_path"`
}

// AddAsset attaches a manual image to a content section under the next free
// [IMAGE_N] placeholder and appends that placeholder to the markdown.
func (s *bookService) AddAsset(ctx context.Context, sectionID uuid.UUID, in AssetInput) (*types.SectionAsset, error) {
	in.StoragePath = strings.TrimSpace(in.StoragePath)
	if in.StoragePath == "" {
		return nil, fmt.Errorf("%w: storage_path is required", apperrors.ErrInvalidArgument)
	}
	sec, err := s.repos.Section.GetByID(dbctx.Context{Ctx: ctx}, sectionID)
	if err != nil {
		return nil, err
	}

	var created *types.SectionAsset
	err = s.withStructureLock(ctx, sec.BookID, func(dbc dbctx.Context) error {
		cur, err := s.repos.Section.GetByID(dbc, sectionID)
		if err != nil {
			return err
		}
		if err := s.requireContentSection(dbc, cur); err != nil {
			return err
		}
		existing, err := s.repos.SectionAsset.ListBySectionIDs(dbc, []uuid.UUID{sectionID})
		if err != nil {
			return err
		}
		placeholders := make([]string, 0, len(existing))
		for _, a := range existing {
			placeholders = append(placeholders, a.Placeholder)
		}
		// the markdown can hold placeholders whose asset row is gone
		placeholders = append(placeholders, citation.ImagePlaceholders(cur.Content())...)
		ph := citation.NextImagePlaceholder(placeholders)

		created, err = s.repos.SectionAsset.Create(dbc, &types.SectionAsset{
			SectionID:   sectionID,
			Placeholder: ph,
			Caption:     strings.TrimSpace(in.Caption),
			SourceType:  types.AssetSourceManual,
			StoragePath: in.StoragePath,
		})
		if err != nil {
			return err
		}
		return s.repos.Section.UpdateFields(dbc, sectionID, map[string]interface{}{
			"content_markdown": citation.AppendPlaceholder(cur.Content(), ph),
		})
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Manual asset added", "section_id", sectionID, "asset_id", created.ID, "placeholder", created.Placeholder)
	s.publishSection(ctx, sectionID)
	return created, nil
}

func (s *bookService) UpdateAsset(ctx context.Context, assetID uuid.UUID, in AssetUpdate) (*types.SectionAsset, error) {
	updates := map[string]interface{}{}
	if in.Caption != nil {
		updates["caption"] = strings.TrimSpace(*in.Caption)
	}
	if in.StoragePath != nil {
		path := strings.TrimSpace(*in.StoragePath)
		if path == "" {
			return nil, fmt.Errorf("%w: storage_path cannot be empty", apperrors.ErrInvalidArgument)
		}
		updates["storage_path"] = path
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", apperrors.ErrInvalidArgument)
	}
	asset, sec, err := s.assetWithSection(ctx, assetID)
	if err != nil {
		return nil, err
	}
	err = s.withStructureLock(ctx, sec.BookID, func(dbc dbctx.Context) error {
		return s.repos.SectionAsset.UpdateFields(dbc, asset.ID, updates)
	})
	if err != nil {
		return nil, err
	}
	return s.repos.SectionAsset.GetByID(dbctx.Context{Ctx: ctx}, asset.ID)
}

// DeleteAsset removes the asset and strips its placeholder from the section
// markdown.
func (s *bookService) DeleteAsset(ctx context.Context, assetID uuid.UUID) error {
	asset, sec, err := s.assetWithSection(ctx, assetID)
	if err != nil {
		return err
	}
	err = s.withStructureLock(ctx, sec.BookID, func(dbc dbctx.Context) error {
		cur, err := s.repos.Section.GetByID(dbc, sec.ID)
		if err != nil {
			return err
		}
		if err := s.repos.SectionAsset.DeleteByID(dbc, asset.ID); err != nil {
			return err
		}
		body := cur.Content()
		stripped := citation.RemovePlaceholder(body, asset.Placeholder)
		if stripped == body {
			return nil
		}
		return s.repos.Section.UpdateFields(dbc, sec.ID, map[string]interface{}{"content_markdown": stripped})
	})
	if err != nil {
		return err
	}
	s.log.Info("Asset deleted", "section_id", sec.ID, "asset_id", asset.ID, "placeholder", asset.Placeholder)
	s.publishSection(ctx, sec.ID)
	return nil
}

func (s *bookService) assetWithSection(ctx context.Context, assetID uuid.UUID) (*types.SectionAsset, *types.Section, error) {
	dbc := dbctx.Context{Ctx: ctx}
	asset, err := s.repos.SectionAsset.GetByID(dbc, assetID)
	if err != nil {
		return nil, nil, err
	}
	sec, err := s.repos.Section.GetByID(dbc, asset.SectionID)
	if err != nil {
		return nil, nil, err
	}
	return asset, sec, nil
}

func (s *bookService) requireContentSection(dbc dbctx.Context, sec *types.Section) error {
	ch, err := s.repos.Chapter.GetByID(dbc, sec.ChapterID)
	if err != nil {
		return err
	}
	if ch.IsBibliography {
		return fmt.Errorf("%w: the bibliography section has no images", apperrors.ErrInvalidArgument)
	}
	return nil
}

func (s *bookService) publishSection(ctx context.Context, sectionID uuid.UUID) {
	if sec, err := s.repos.Section.GetByID(dbctx.Context{Ctx: ctx}, sectionID); err == nil {
		s.notify.SectionUpdated(sec.BookID, sec)
	}
}
