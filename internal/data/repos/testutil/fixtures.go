package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	"gorm.io/gorm"
)

func SeedBook(tb testing.TB, ctx context.Context, tx *gorm.DB, status string) *types.Book {
	tb.Helper()
	b := &types.Book{
		ID:     uuid.New(),
		Title:  "Distributed Systems",
		Author: "Lecturer",
		Status: status,
	}
	if err := tx.WithContext(ctx).Create(b).Error; err != nil {
		tb.Fatalf("seed book: %v", err)
	}
	return b
}

func SeedChapter(tb testing.TB, ctx context.Context, tx *gorm.DB, bookID uuid.UUID, title string, order int, isBibliography bool) *types.Chapter {
	tb.Helper()
	c := &types.Chapter{
		ID:             uuid.New(),
		BookID:         bookID,
		Title:          title,
		Order:          order,
		IsBibliography: isBibliography,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed chapter: %v", err)
	}
	return c
}

// SeedSection stores content verbatim; pass "" to leave content_markdown NULL.
func SeedSection(tb testing.TB, ctx context.Context, tx *gorm.DB, ch *types.Chapter, title string, order int, status, content string) *types.Section {
	tb.Helper()
	s := &types.Section{
		ID:        uuid.New(),
		ChapterID: ch.ID,
		BookID:    ch.BookID,
		Title:     title,
		Order:     order,
		Status:    status,
	}
	if content != "" {
		c := content
		s.ContentMarkdown = &c
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed section: %v", err)
	}
	return s
}

func SeedReference(tb testing.TB, ctx context.Context, tx *gorm.DB, bookID uuid.UUID, key string, number int, text string) *types.GlobalReference {
	tb.Helper()
	r := &types.GlobalReference{
		ID:     uuid.New(),
		BookID: bookID,
		Key:    key,
		Number: number,
		Text:   text,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed reference: %v", err)
	}
	return r
}

func SeedSourceDocument(tb testing.TB, ctx context.Context, tx *gorm.DB, bookID uuid.UUID, kind, path string) *types.SourceDocument {
	tb.Helper()
	d := &types.SourceDocument{
		ID:          uuid.New(),
		BookID:      bookID,
		Kind:        kind,
		Title:       path,
		StoragePath: path,
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed source document: %v", err)
	}
	return d
}

func ReloadSection(tb testing.TB, ctx context.Context, tx *gorm.DB, id uuid.UUID) *types.Section {
	tb.Helper()
	var s types.Section
	if err := tx.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		tb.Fatalf("reload section: %v", err)
	}
	return &s
}

func References(tb testing.TB, ctx context.Context, tx *gorm.DB, bookID uuid.UUID) []*types.GlobalReference {
	tb.Helper()
	var out []*types.GlobalReference
	if err := tx.WithContext(ctx).Where("book_id = ?", bookID).Order("number ASC").Find(&out).Error; err != nil {
		tb.Fatalf("load references: %v", err)
	}
	return out
}
