package section_generate

import (
	"fmt"

	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	jobrt "github.com/pedrohsmesquita/Lectria/internal/jobs/runtime"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/dbctx"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	sectionID, ok := jc.PayloadUUID("section_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing section_id"))
		return nil
	}

	// a reclaimed run finds the section still PROCESSING from the dead attempt
	if jc.Job.Attempts > 1 {
		if _, err := p.repos.Section.TransitionStatus(dbctx.Context{Ctx: jc.Ctx}, sectionID,
			[]string{types.SectionStatusProcessing},
			map[string]interface{}{"status": types.SectionStatusPending},
		); err != nil {
			jc.Fail("reclaim", err)
			return nil
		}
	}

	jc.Progress("generate", 10, "Generating section")
	res, err := p.section.Generate(jc.Ctx, sectionID)
	if err != nil {
		jc.Fail("generate", err)
		return nil
	}

	// a finished book gets its reference list refreshed with any new entries
	book, err := p.repos.Book.GetByID(dbctx.Context{Ctx: jc.Ctx}, res.Section.BookID)
	if err == nil && book.Status == types.BookStatusCompleted {
		jc.Progress("bibliography", 90, "Updating reference list")
		if _, err := p.bib.Sync(jc.Ctx, book.ID); err != nil {
			p.log.Warn("Bibliography sync after regeneration failed", "book_id", book.ID, "error", err)
		}
	}

	jc.Succeed("done", map[string]any{
		"section_id": sectionID.String(),
		"references": len(res.Numbers),
		"unresolved": res.Unresolved,
		"assets":     res.Assets,
	})
	return nil
}
