package book_discovery

import (
	"fmt"

	jobrt "github.com/pedrohsmesquita/Lectria/internal/jobs/runtime"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	bookID, ok := jc.PayloadUUID("book_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing book_id"))
		return nil
	}

	jc.Progress("discover", 5, "Reading sources and planning chapters")
	res, err := p.structure.Discover(jc.Ctx, bookID)
	if err != nil {
		p.log.Warn("Structure discovery failed", "book_id", bookID, "error", err)
		jc.Fail("discover", err)
		return nil
	}

	jc.Succeed("done", map[string]any{
		"book_id":  bookID.String(),
		"chapters": res.Chapters,
		"sections": res.Sections,
	})
	return nil
}
