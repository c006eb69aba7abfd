package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/pedrohsmesquita/Lectria/internal/bibliography"
	"github.com/pedrohsmesquita/Lectria/internal/data/repos"
	"github.com/pedrohsmesquita/Lectria/internal/jobs/pipeline/book_content"
	"github.com/pedrohsmesquita/Lectria/internal/jobs/pipeline/book_discovery"
	"github.com/pedrohsmesquita/Lectria/internal/jobs/pipeline/section_generate"
	jobrt "github.com/pedrohsmesquita/Lectria/internal/jobs/runtime"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
	"github.com/pedrohsmesquita/Lectria/internal/realtime"
	"github.com/pedrohsmesquita/Lectria/internal/services"
)

type Services struct {
	Bibliography *bibliography.Service
	JobNotifier  services.JobNotifier
	BookNotifier services.BookNotifier
	Jobs         services.JobService
	Books        services.BookService
	Content      services.ContentService
	Section      services.SectionGenerationService
	Structure    services.StructureService
	Orchestrator services.OrchestratorService
	Registry     *jobrt.Registry
}

func wireLocker(log *logger.Logger, cfg Config, clients *Clients) bibliography.BookLocker {
	if clients.Redis != nil {
		log.Info("Using Redis book locker", "ttl", cfg.Redis.LockTTL)
		return bibliography.NewRedisLocker(clients.Redis, log, cfg.Redis.LockTTL)
	}
	return bibliography.NewLocalLocker()
}

func wireEmitter(hub *realtime.SSEHub, clients *Clients) realtime.Emitter {
	if clients.Bus != nil {
		return &realtime.BusEmitter{Bus: clients.Bus, Fallback: hub}
	}
	return &realtime.HubEmitter{Hub: hub}
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, set *repos.Set, clients *Clients, emit realtime.Emitter) (Services, error) {
	log.Info("Wiring services...")

	bib := bibliography.NewService(db, set, wireLocker(log, cfg, clients), cfg.Bibliography, log)
	jobNotify := services.NewJobNotifier(emit)
	bookNotify := services.NewBookNotifier(emit)

	taskQueue := ""
	if clients.Temporal != nil {
		taskQueue = cfg.Temporal.WithDefaults().TaskQueue
	}
	jobs := services.NewJobService(db, log, set.JobRun, jobNotify, clients.Temporal, taskQueue)
	books := services.NewBookService(db, log, set, bib, jobs, bookNotify)
	content := services.NewContentService(db, log, set, bib, bookNotify)
	section := services.NewSectionGenerationService(log, set, content, clients.Generator, clients.Reader, bookNotify, cfg.Generation)
	structure := services.NewStructureService(db, log, set, bib, clients.Generator, clients.Reader, bookNotify, cfg.Generation.MaxSourceBytes)
	orchestrator := services.NewOrchestratorService(log, set, bib, section, bookNotify)

	registry := jobrt.NewRegistry()
	for _, h := range []jobrt.Handler{
		book_discovery.New(log, structure),
		book_content.New(log, orchestrator),
		section_generate.New(log, set, bib, section),
	} {
		if err := registry.Register(h); err != nil {
			return Services{}, fmt.Errorf("register job handler: %w", err)
		}
	}

	return Services{
		Bibliography: bib,
		JobNotifier:  jobNotify,
		BookNotifier: bookNotify,
		Jobs:         jobs,
		Books:        books,
		Content:      content,
		Section:      section,
		Structure:    structure,
		Orchestrator: orchestrator,
		Registry:     registry,
	}, nil
}
