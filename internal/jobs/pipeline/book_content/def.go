package book_content

import (
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
	"github.com/pedrohsmesquita/Lectria/internal/services"
)

type Pipeline struct {
	log          *logger.Logger
	orchestrator services.OrchestratorService
}

func New(baseLog *logger.Logger, orchestrator services.OrchestratorService) *Pipeline {
	return &Pipeline{
		log:          baseLog.With("job", services.JobTypeBookContent),
		orchestrator: orchestrator,
	}
}

func (p *Pipeline) Type() string { return services.JobTypeBookContent }
