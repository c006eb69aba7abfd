package section_generate

import (
	"github.com/pedrohsmesquita/Lectria/internal/bibliography"
	"github.com/pedrohsmesquita/Lectria/internal/data/repos"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
	"github.com/pedrohsmesquita/Lectria/internal/services"
)

type Pipeline struct {
	log     *logger.Logger
	repos   *repos.Set
	bib     *bibliography.Service
	section services.SectionGenerationService
}

func New(baseLog *logger.Logger, set *repos.Set, bib *bibliography.Service, section services.SectionGenerationService) *Pipeline {
	return &Pipeline{
		log:     baseLog.With("job", services.JobTypeSectionGenerate),
		repos:   set,
		bib:     bib,
		section: section,
	}
}

func (p *Pipeline) Type() string { return services.JobTypeSectionGenerate }
