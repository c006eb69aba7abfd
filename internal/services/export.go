package services

import (
	"context"

	"github.com/google/uuid"

	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/dbctx"
)

type ExportSection struct {
	ID              uuid.UUID             `json:"id"`
	Title           string                `json:"title"`
	Order           int                   `json:"order"`
	Status          string                `json:"status"`
	ContentMarkdown string                `json:"content_markdown"`
	Assets          []*types.SectionAsset `json:"assets"`
}

type ExportChapter struct {
	ID             uuid.UUID        `json:"id"`
	Title          string           `json:"title"`
	Order          int              `json:"order"`
	IsBibliography bool             `json:"is_bibliography"`
	Sections       []*ExportSection `json:"sections"`
}

// ExportPayload is everything a renderer needs: the final markdown in reading
// order, the assets each section points at and the numbered reference list.
type ExportPayload struct {
	Book       *types.Book              `json:"book"`
	Chapters   []*ExportChapter         `json:"chapters"`
	References []*types.GlobalReference `json:"references"`
}

func (s *bookService) Export(ctx context.Context, bookID uuid.UUID) (*ExportPayload, error) {
	dbc := dbctx.Context{Ctx: ctx}
	book, err := s.repos.Book.GetByID(dbc, bookID)
	if err != nil {
		return nil, err
	}
	chapters, err := s.repos.Chapter.ListByBookWithSections(dbc, bookID)
	if err != nil {
		return nil, err
	}
	var sectionIDs []uuid.UUID
	for _, ch := range chapters {
		for i := range ch.Sections {
			sectionIDs = append(sectionIDs, ch.Sections[i].ID)
		}
	}
	assets, err := s.repos.SectionAsset.ListBySectionIDs(dbc, sectionIDs)
	if err != nil {
		return nil, err
	}
	assetsBySection := make(map[uuid.UUID][]*types.SectionAsset, len(sectionIDs))
	for _, a := range assets {
		assetsBySection[a.SectionID] = append(assetsBySection[a.SectionID], a)
	}
	refs, err := s.repos.Reference.ListByBook(dbc, bookID)
	if err != nil {
		return nil, err
	}

	out := &ExportPayload{
		Book:       book,
		Chapters:   make([]*ExportChapter, 0, len(chapters)),
		References: refs,
	}
	for _, ch := range chapters {
		ec := &ExportChapter{
			ID:             ch.ID,
			Title:          ch.Title,
			Order:          ch.Order,
			IsBibliography: ch.IsBibliography,
			Sections:       make([]*ExportSection, 0, len(ch.Sections)),
		}
		for i := range ch.Sections {
			sec := &ch.Sections[i]
			sa := assetsBySection[sec.ID]
			if sa == nil {
				sa = []*types.SectionAsset{}
			}
			ec.Sections = append(ec.Sections, &ExportSection{
				ID:              sec.ID,
				Title:           sec.Title,
				Order:           sec.Order,
				Status:          sec.Status,
				ContentMarkdown: sec.Content(),
				Assets:          sa,
			})
		}
		out.Chapters = append(out.Chapters, ec)
	}
	return out, nil
}
