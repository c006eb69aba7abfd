package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pedrohsmesquita/Lectria/internal/data/repos/testutil"
	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	apperrors "github.com/pedrohsmesquita/Lectria/internal/pkg/errors"
)

type nopJobNotifier struct{}

func (nopJobNotifier) JobCreated(*types.JobRun)                       {}
func (nopJobNotifier) JobProgress(*types.JobRun, string, int, string) {}
func (nopJobNotifier) JobFailed(*types.JobRun, string, string)        {}
func (nopJobNotifier) JobDone(*types.JobRun)                          {}

func newBookService(t *testing.T, f *fixture) BookService {
	t.Helper()
	log := testutil.Logger(t)
	jobs := NewJobService(f.db, log, f.set.JobRun, nopJobNotifier{}, nil, "")
	return NewBookService(f.db, log, f.set, f.bib, jobs, f.notify)
}

func TestReorderChaptersKeepsBibliographyLast(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newBookService(t, f)
	book := testutil.SeedBook(t, ctx, f.db, types.BookStatusCompleted)
	a := testutil.SeedChapter(t, ctx, f.db, book.ID, "A", 1, false)
	b := testutil.SeedChapter(t, ctx, f.db, book.ID, "B", 2, false)
	c := testutil.SeedChapter(t, ctx, f.db, book.ID, "C", 3, false)
	bib := testutil.SeedChapter(t, ctx, f.db, book.ID, "References", 4, true)

	out, err := svc.ReorderChapters(ctx, book.ID, []uuid.UUID{bib.ID, c.ID, a.ID})
	require.NoError(t, err)
	var ids []uuid.UUID
	for _, ch := range out {
		ids = append(ids, ch.ID)
	}
	require.Equal(t, []uuid.UUID{c.ID, a.ID, b.ID, bib.ID}, ids)

	stored, err := f.set.Chapter.ListByBook(dbcOf(ctx), book.ID)
	require.NoError(t, err)
	for i, ch := range stored {
		require.Equal(t, i+1, ch.Order)
		require.Equal(t, ids[i], ch.ID)
	}
}

func TestReorderRejectsUnknownAndBusy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newBookService(t, f)
	book := testutil.SeedBook(t, ctx, f.db, types.BookStatusGenerating)
	ch := testutil.SeedChapter(t, ctx, f.db, book.ID, "A", 1, false)
	s1 := testutil.SeedSection(t, ctx, f.db, ch, "one", 1, types.SectionStatusSuccess, "x")
	s2 := testutil.SeedSection(t, ctx, f.db, ch, "two", 2, types.SectionStatusPending, "")

	_, err := svc.ReorderSections(ctx, ch.ID, []uuid.UUID{uuid.New()})
	require.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	out, err := svc.ReorderSections(ctx, ch.ID, []uuid.UUID{s2.ID})
	require.NoError(t, err)
	require.Equal(t, s2.ID, out[0].ID)
	require.Equal(t, s1.ID, out[1].ID)

	require.NoError(t, f.set.Section.UpdateFields(dbcOf(ctx), s2.ID, map[string]interface{}{"status": types.SectionStatusProcessing}))
	_, err = svc.ReorderSections(ctx, ch.ID, []uuid.UUID{s1.ID})
	require.ErrorIs(t, err, apperrors.ErrBookBusy)

	title := "renamed"
	_, err = svc.UpdateSection(ctx, s1.ID, SectionUpdate{Title: &title})
	require.ErrorIs(t, err, apperrors.ErrBookBusy)
}

func TestUpdateSectionRejectsBibliographyContent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newBookService(t, f)
	book := testutil.SeedBook(t, ctx, f.db, types.BookStatusCompleted)
	ch := testutil.SeedChapter(t, ctx, f.db, book.ID, "A", 1, false)
	sec := testutil.SeedSection(t, ctx, f.db, ch, "one", 1, types.SectionStatusSuccess, "old")
	bibCh := testutil.SeedChapter(t, ctx, f.db, book.ID, "References", 2, true)
	bibSec := testutil.SeedSection(t, ctx, f.db, bibCh, "Reference List", 1, types.SectionStatusSuccess, "[1] x")

	body := "edited [7] verbatim"
	got, err := svc.UpdateSection(ctx, sec.ID, SectionUpdate{ContentMarkdown: &body})
	require.NoError(t, err)
	require.Equal(t, body, got.Content())

	_, err = svc.UpdateSection(ctx, bibSec.ID, SectionUpdate{ContentMarkdown: &body})
	require.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestStartDiscoveryIsUniquePerBook(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newBookService(t, f)

	book, err := svc.Create(ctx, "  Operating Systems ", "Prof")
	require.NoError(t, err)
	require.Equal(t, types.BookStatusPending, book.Status)

	_, err = svc.StartDiscovery(ctx, book.ID)
	require.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = svc.AddSources(ctx, book.ID, []SourceInput{{Kind: "video", StoragePath: "a"}})
	require.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	docs, err := svc.AddSources(ctx, book.ID, []SourceInput{{Kind: "Transcript", StoragePath: "t1.txt", Title: "Week 1"}})
	require.NoError(t, err)
	require.Equal(t, types.SourceKindTranscript, docs[0].Kind)

	first, err := svc.StartDiscovery(ctx, book.ID)
	require.NoError(t, err)
	second, err := svc.StartDiscovery(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	_, err = svc.StartGeneration(ctx, book.ID)
	require.ErrorIs(t, err, apperrors.ErrConflict)
}
