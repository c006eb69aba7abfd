package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pedrohsmesquita/Lectria/internal/bibliography"
	"github.com/pedrohsmesquita/Lectria/internal/data/repos/testutil"
	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	"github.com/pedrohsmesquita/Lectria/internal/generation"
	apperrors "github.com/pedrohsmesquita/Lectria/internal/pkg/errors"
)

// cancelingGenerator cancels the run from inside its first call, the way a
// worker shutdown lands in the middle of a generator request.
type cancelingGenerator struct {
	fakeGenerator
	once   sync.Once
	cancel context.CancelFunc
}

func (g *cancelingGenerator) GenerateSection(ctx context.Context, in generation.SectionInput) (*generation.SectionDraft, error) {
	canceled := false
	g.once.Do(func() {
		g.cancel()
		canceled = true
	})
	if canceled {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return g.fakeGenerator.GenerateSection(ctx, in)
}

func lamportDraft() *generation.SectionDraft {
	return &generation.SectionDraft{
		ContentMarkdown: "Order events [REF:LAMPORT78].",
		Bibliography:    []bibliography.Mention{{Key: "LAMPORT78", Text: "Lamport 1978"}},
	}
}

func newOrchestrator(t *testing.T, f *fixture, gen generation.Generator, root string) OrchestratorService {
	t.Helper()
	return NewOrchestratorService(testutil.Logger(t), f.set, f.bib, newGenerationService(t, f, gen, root), f.notify)
}

func TestCanceledRunReleasesSectionAndResumes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	root := t.TempDir()
	book, sec := seedGeneratable(t, ctx, f, root)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	gen := &cancelingGenerator{fakeGenerator: fakeGenerator{draft: lamportDraft()}, cancel: cancel}
	orch := newOrchestrator(t, f, gen, root)

	_, err := orch.Run(runCtx, book.ID, nil)
	require.ErrorIs(t, err, context.Canceled)

	got := testutil.ReloadSection(t, ctx, f.db, sec.ID)
	require.Equal(t, types.SectionStatusPending, got.Status)
	busy, err := f.set.Section.AnyProcessing(dbcOf(ctx), book.ID)
	require.NoError(t, err)
	require.False(t, busy)

	res, err := orch.Run(ctx, book.ID, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Generated)

	got = testutil.ReloadSection(t, ctx, f.db, sec.ID)
	require.Equal(t, types.SectionStatusSuccess, got.Status)
	b, err := f.set.Book.GetByID(dbcOf(ctx), book.ID)
	require.NoError(t, err)
	require.Equal(t, types.BookStatusCompleted, b.Status)
	require.Equal(t, 100, b.Progress)

	_, err = f.bib.Reconcile(ctx, book.ID, "[1] Lamport 1978")
	require.NoError(t, err)
}

func TestRunResetsSectionLeftProcessing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	root := t.TempDir()
	book, sec := seedGeneratable(t, ctx, f, root)
	require.NoError(t, f.set.Section.UpdateFields(dbcOf(ctx), sec.ID, map[string]interface{}{
		"status": types.SectionStatusProcessing,
	}))

	gen := &fakeGenerator{draft: lamportDraft()}
	res, err := newOrchestrator(t, f, gen, root).Run(ctx, book.ID, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Generated)
	require.Equal(t, types.SectionStatusSuccess, testutil.ReloadSection(t, ctx, f.db, sec.ID).Status)
}

func TestRunLeavesSectionOwnedByRegeneration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	root := t.TempDir()
	book, sec := seedGeneratable(t, ctx, f, root)
	require.NoError(t, f.set.Section.UpdateFields(dbcOf(ctx), sec.ID, map[string]interface{}{
		"status": types.SectionStatusProcessing,
	}))
	sectionID := sec.ID
	_, err := f.set.JobRun.Create(dbcOf(ctx), []*types.JobRun{{
		JobType:    JobTypeSectionGenerate,
		EntityType: "section",
		EntityID:   &sectionID,
		Status:     types.JobStatusRunning,
		Stage:      "generate",
	}})
	require.NoError(t, err)

	gen := &fakeGenerator{draft: lamportDraft()}
	_, err = newOrchestrator(t, f, gen, root).Run(ctx, book.ID, nil)
	require.ErrorIs(t, err, apperrors.ErrBookBusy)
	require.Equal(t, 0, gen.calls)

	require.Equal(t, types.SectionStatusProcessing, testutil.ReloadSection(t, ctx, f.db, sec.ID).Status)
	b, err := f.set.Book.GetByID(dbcOf(ctx), book.ID)
	require.NoError(t, err)
	require.NotEqual(t, types.BookStatusCompleted, b.Status)
}
