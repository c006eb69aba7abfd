package book_discovery

import (
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
	"github.com/pedrohsmesquita/Lectria/internal/services"
)

type Pipeline struct {
	log       *logger.Logger
	structure services.StructureService
}

func New(baseLog *logger.Logger, structure services.StructureService) *Pipeline {
	return &Pipeline{
		log:       baseLog.With("job", services.JobTypeBookDiscovery),
		structure: structure,
	}
}

func (p *Pipeline) Type() string { return services.JobTypeBookDiscovery }
