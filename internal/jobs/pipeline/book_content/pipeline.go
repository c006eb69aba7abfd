package book_content

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

	res, err := p.orchestrator.Run(jc.Ctx, bookID, func(step string, pct int) {
		jc.Progress("generate", pct, step)
	})
	if err != nil {
		p.log.Warn("Book generation stopped", "book_id", bookID, "error", err)
		jc.Fail("generate", err)
		return nil
	}

	jc.Succeed("done", map[string]any{
		"book_id":   bookID.String(),
		"generated": res.Generated,
		"total":     res.Total,
	})
	return nil
}
