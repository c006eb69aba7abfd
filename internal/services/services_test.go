package services

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pedrohsmesquita/Lectria/internal/bibliography"
	"github.com/pedrohsmesquita/Lectria/internal/data/repos"
	"github.com/pedrohsmesquita/Lectria/internal/data/repos/testutil"
	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	"github.com/pedrohsmesquita/Lectria/internal/generation"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/dbctx"
	apperrors "github.com/pedrohsmesquita/Lectria/internal/pkg/errors"
	"github.com/pedrohsmesquita/Lectria/internal/sources"
)

type recordingNotifier struct {
	mu       sync.Mutex
	books    []*types.Book
	sections []*types.Section
	results  int
}

func (n *recordingNotifier) BookUpdated(book *types.Book) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.books = append(n.books, book)
}

func (n *recordingNotifier) SectionUpdated(_ uuid.UUID, section *types.Section) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sections = append(n.sections, section)
}

func (n *recordingNotifier) BibliographyReconciled(uuid.UUID, *bibliography.Result) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results++
}

type fakeGenerator struct {
	mu        sync.Mutex
	calls     int
	failFirst int
	failWith  error
	draft     *generation.SectionDraft
	lastInput generation.SectionInput
}

func (g *fakeGenerator) DiscoverStructure(context.Context, generation.DiscoveryInput) (*generation.Structure, error) {
	return nil, apperrors.ErrInvalidArgument
}

func (g *fakeGenerator) GenerateSection(_ context.Context, in generation.SectionInput) (*generation.SectionDraft, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.lastInput = in
	if g.calls <= g.failFirst {
		return nil, g.failWith
	}
	return g.draft, nil
}

type fixture struct {
	db     *gorm.DB
	set    *repos.Set
	bib    *bibliography.Service
	notify *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)
	return &fixture{
		db:     db,
		set:    set,
		bib:    bibliography.NewService(db, set, bibliography.NewLocalLocker(), bibliography.ChapterNames{}, log),
		notify: &recordingNotifier{},
	}
}

func dbcOf(ctx context.Context) dbctx.Context { return dbctx.Context{Ctx: ctx} }

func TestApplyDraftResolvesAndRewrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	book := testutil.SeedBook(t, ctx, f.db, types.BookStatusGenerating)
	ch := testutil.SeedChapter(t, ctx, f.db, book.ID, "Intro", 1, false)
	sec := testutil.SeedSection(t, ctx, f.db, ch, "Clocks", 1, types.SectionStatusProcessing, "")
	testutil.SeedReference(t, ctx, f.db, book.ID, "LAMPORT78", 1, "Lamport, L. Time, clocks. 1978.")

	content := NewContentService(f.db, testutil.Logger(t), f.set, f.bib, f.notify)
	page := 3
	res, err := content.ApplyDraft(ctx, sec.ID, &generation.SectionDraft{
		ContentMarkdown: "Clocks [REF:LAMPORT78] and vectors [REF:FIDGE88]. See [IMAGE_1]. Also [REF:NOPE].",
		Bibliography: []bibliography.Mention{
			{Key: "REF:FIDGE88", Text: "Fidge, C. Timestamps. 1988."},
			{Key: "LAMPORT78", Text: "ignored duplicate text"},
		},
		Assets: []generation.AssetDraft{
			{Placeholder: "[IMAGE_1]", Caption: "Vector clock", SlidePage: &page, Crop: &generation.CropBox{XMin: 10, YMin: 20, XMax: 500, YMax: 600}},
		},
	}, "slides/week1.txt")
	require.NoError(t, err)
	require.Equal(t, 1, res.Numbers["LAMPORT78"])
	require.Equal(t, 2, res.Numbers["FIDGE88"])
	require.Equal(t, []string{"NOPE"}, res.Unresolved)
	require.Equal(t, 1, res.Assets)

	got := testutil.ReloadSection(t, ctx, f.db, sec.ID)
	require.Equal(t, types.SectionStatusSuccess, got.Status)
	require.Contains(t, got.Content(), "Clocks [1] and vectors [2].")

	refs := testutil.References(t, ctx, f.db, book.ID)
	require.Len(t, refs, 2)
	require.Equal(t, "Lamport, L. Time, clocks. 1978.", refs[0].Text)

	assets, err := f.set.SectionAsset.ListBySectionIDs(dbcOf(ctx), []uuid.UUID{sec.ID})
	require.NoError(t, err)
	require.Len(t, assets, 1)
	require.Contains(t, string(assets[0].Metadata), "slides/week1.txt")
	require.Contains(t, string(assets[0].Metadata), "crop_info")
}

func TestApplyDraftRequiresProcessing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	book := testutil.SeedBook(t, ctx, f.db, types.BookStatusGenerating)
	ch := testutil.SeedChapter(t, ctx, f.db, book.ID, "Intro", 1, false)
	sec := testutil.SeedSection(t, ctx, f.db, ch, "Clocks", 1, types.SectionStatusPending, "")

	content := NewContentService(f.db, testutil.Logger(t), f.set, f.bib, f.notify)
	_, err := content.ApplyDraft(ctx, sec.ID, &generation.SectionDraft{ContentMarkdown: "body"}, "")
	require.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = content.ApplyDraft(ctx, sec.ID, &generation.SectionDraft{ContentMarkdown: "  "}, "")
	require.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func newGenerationService(t *testing.T, f *fixture, gen generation.Generator, root string) *sectionGenerationService {
	t.Helper()
	reader, err := sources.NewLocalReader(root)
	require.NoError(t, err)
	content := NewContentService(f.db, testutil.Logger(t), f.set, f.bib, f.notify)
	svc := NewSectionGenerationService(testutil.Logger(t), f.set, content, gen, reader, f.notify, GenerationConfig{
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
	}).(*sectionGenerationService)
	svc.sleep = func(context.Context, time.Duration) error { return nil }
	return svc
}

func seedGeneratable(t *testing.T, ctx context.Context, f *fixture, root string) (*types.Book, *types.Section) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, "week1.txt"), []byte("today we talk about clocks"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "slides1.txt"), []byte("slide 1: happened-before"), 0o644))
	book := testutil.SeedBook(t, ctx, f.db, types.BookStatusGenerating)
	tr := testutil.SeedSourceDocument(t, ctx, f.db, book.ID, types.SourceKindTranscript, "week1.txt")
	sl := testutil.SeedSourceDocument(t, ctx, f.db, book.ID, types.SourceKindSlide, "slides1.txt")
	ch := testutil.SeedChapter(t, ctx, f.db, book.ID, "Time", 1, false)
	sec := testutil.SeedSection(t, ctx, f.db, ch, "Logical clocks", 1, types.SectionStatusPending, "")
	require.NoError(t, f.set.Section.UpdateFields(dbcOf(ctx), sec.ID, map[string]interface{}{
		"transcript_id": tr.ID,
		"slide_id":      sl.ID,
	}))
	return book, sec
}

func TestGenerateRetriesWhenRateLimited(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	root := t.TempDir()
	_, sec := seedGeneratable(t, ctx, f, root)

	gen := &fakeGenerator{
		failFirst: 2,
		failWith:  apperrors.ErrResourceExhausted,
		draft: &generation.SectionDraft{
			ContentMarkdown: "Order events [REF:LAMPORT78].",
			Bibliography:    []bibliography.Mention{{Key: "LAMPORT78", Text: "Lamport 1978"}},
		},
	}
	svc := newGenerationService(t, f, gen, root)
	res, err := svc.Generate(ctx, sec.ID)
	require.NoError(t, err)
	require.Equal(t, 3, gen.calls)
	require.Equal(t, "today we talk about clocks", gen.lastInput.Transcript)
	require.Equal(t, "slide 1: happened-before", gen.lastInput.Slides)
	require.Equal(t, "Time", gen.lastInput.ChapterTitle)
	require.Equal(t, "Order events [1].", res.Section.Content())
}

func TestGenerateFailureMarksSectionAndBook(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	root := t.TempDir()
	book, sec := seedGeneratable(t, ctx, f, root)

	gen := &fakeGenerator{failFirst: 10, failWith: apperrors.ErrResourceExhausted}
	svc := newGenerationService(t, f, gen, root)
	_, err := svc.Generate(ctx, sec.ID)
	require.ErrorIs(t, err, apperrors.ErrResourceExhausted)
	require.Equal(t, 3, gen.calls)

	got := testutil.ReloadSection(t, ctx, f.db, sec.ID)
	require.Equal(t, types.SectionStatusError, got.Status)
	require.NotEmpty(t, got.ErrorMessage)

	b, err := f.set.Book.GetByID(dbcOf(ctx), book.ID)
	require.NoError(t, err)
	require.Equal(t, types.BookStatusError, b.Status)
}
