package worker_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pedrohsmesquita/Lectria/internal/bibliography"
	"github.com/pedrohsmesquita/Lectria/internal/data/repos"
	"github.com/pedrohsmesquita/Lectria/internal/data/repos/testutil"
	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	"github.com/pedrohsmesquita/Lectria/internal/generation"
	"github.com/pedrohsmesquita/Lectria/internal/jobs/pipeline/book_content"
	"github.com/pedrohsmesquita/Lectria/internal/jobs/pipeline/book_discovery"
	"github.com/pedrohsmesquita/Lectria/internal/jobs/runtime"
	"github.com/pedrohsmesquita/Lectria/internal/jobs/worker"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/dbctx"
	"github.com/pedrohsmesquita/Lectria/internal/realtime"
	"github.com/pedrohsmesquita/Lectria/internal/services"
	"github.com/pedrohsmesquita/Lectria/internal/sources"
)

type scriptedGenerator struct {
	transcriptID string
}

func (g *scriptedGenerator) DiscoverStructure(_ context.Context, in generation.DiscoveryInput) (*generation.Structure, error) {
	return &generation.Structure{Chapters: []generation.ChapterPlan{
		{Title: "Time", Sections: []generation.SectionPlan{
			{Title: "Logical clocks and the happened-before relation", TranscriptID: g.transcriptID},
			{Title: "Vector clocks", TranscriptID: "not-a-source"},
		}},
		{Title: "", Sections: []generation.SectionPlan{{Title: "dropped"}}},
	}}, nil
}

func (g *scriptedGenerator) GenerateSection(_ context.Context, in generation.SectionInput) (*generation.SectionDraft, error) {
	return &generation.SectionDraft{
		ContentMarkdown: in.SectionTitle + " as shown by [REF:LAMPORT78].",
		Bibliography: []bibliography.Mention{
			{Key: "LAMPORT78", Text: "Lamport, L. Time, clocks, and the ordering of events. 1978."},
		},
	}, nil
}

func TestDiscoveryThenGeneration(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "week1.txt"), []byte("lecture one"), 0o644))
	reader, err := sources.NewLocalReader(root)
	require.NoError(t, err)

	hub := realtime.NewSSEHub(log)
	emit := &realtime.HubEmitter{Hub: hub}
	bookNotify := services.NewBookNotifier(emit)
	jobNotify := services.NewJobNotifier(emit)

	bib := bibliography.NewService(db, set, bibliography.NewLocalLocker(), bibliography.ChapterNames{}, log)
	content := services.NewContentService(db, log, set, bib, bookNotify)
	jobs := services.NewJobService(db, log, set.JobRun, jobNotify, nil, "")
	books := services.NewBookService(db, log, set, bib, jobs, bookNotify)

	book, err := books.Create(ctx, "Distributed Systems", "Prof")
	require.NoError(t, err)
	docs, err := books.AddSources(ctx, book.ID, []services.SourceInput{{Kind: "transcript", StoragePath: "week1.txt"}})
	require.NoError(t, err)

	gen := &scriptedGenerator{transcriptID: docs[0].ID.String()}
	sectionGen := services.NewSectionGenerationService(log, set, content, gen, reader, bookNotify, services.GenerationConfig{})
	registry := runtime.NewRegistry()
	require.NoError(t, registry.Register(book_discovery.New(log, services.NewStructureService(db, log, set, bib, gen, reader, bookNotify, 0))))
	require.NoError(t, registry.Register(book_content.New(log, services.NewOrchestratorService(log, set, bib, sectionGen, bookNotify))))

	w := worker.NewWorker(db, log, set.JobRun, registry, jobNotify, worker.Config{})

	discovery, err := books.StartDiscovery(ctx, book.ID)
	require.NoError(t, err)
	ran, err := w.RunOnce(ctx)
	require.NoError(t, err)
	require.True(t, ran)

	job, err := jobs.GetByID(dbctx.Context{Ctx: ctx}, discovery.ID)
	require.NoError(t, err)
	require.Equal(t, types.JobStatusSucceeded, job.Status, job.Error)

	got, err := books.Get(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, types.BookStatusStructureGenerated, got.Status)
	require.Equal(t, services.DiscoveryProgress, got.Progress)

	chapters, err := books.Chapters(ctx, book.ID)
	require.NoError(t, err)
	require.Len(t, chapters, 1)
	require.Len(t, chapters[0].Sections, 2)
	require.Equal(t, docs[0].ID, *chapters[0].Sections[1].TranscriptID)

	generate, err := books.StartGeneration(ctx, book.ID)
	require.NoError(t, err)
	ran, err = w.RunOnce(ctx)
	require.NoError(t, err)
	require.True(t, ran)

	job, err = jobs.GetByID(dbctx.Context{Ctx: ctx}, generate.ID)
	require.NoError(t, err)
	require.Equal(t, types.JobStatusSucceeded, job.Status, job.Error)

	got, err = books.Get(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, types.BookStatusCompleted, got.Status)
	require.Equal(t, 100, got.Progress)

	export, err := books.Export(ctx, book.ID)
	require.NoError(t, err)
	require.Len(t, export.Chapters, 2)
	require.True(t, export.Chapters[1].IsBibliography)
	require.Contains(t, export.Chapters[0].Sections[0].ContentMarkdown, "[1].")
	require.Len(t, export.References, 1)

	ran, err = w.RunOnce(ctx)
	require.NoError(t, err)
	require.False(t, ran)
}

func TestExecuteFailsUnknownJobType(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)
	jobs := services.NewJobService(db, log, set.JobRun, services.NewJobNotifier(&realtime.HubEmitter{Hub: realtime.NewSSEHub(log)}), nil, "")

	book := testutil.SeedBook(t, ctx, db, types.BookStatusPending)
	queued, err := jobs.Enqueue(dbctx.Context{Ctx: ctx}, "mystery", "book", book.ID, nil)
	require.NoError(t, err)

	w := worker.NewWorker(db, log, set.JobRun, runtime.NewRegistry(), nil, worker.Config{})
	ran, err := w.RunOnce(ctx)
	require.NoError(t, err)
	require.True(t, ran)

	job, err := jobs.GetByID(dbctx.Context{Ctx: ctx}, queued.ID)
	require.NoError(t, err)
	require.Equal(t, types.JobStatusFailed, job.Status)
	require.Contains(t, job.Error, "mystery")
}
