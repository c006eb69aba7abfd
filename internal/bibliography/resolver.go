package bibliography

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/pedrohsmesquita/Lectria/internal/citation"
	"github.com/pedrohsmesquita/Lectria/internal/data/repos"
	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/ctxutil"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/dbctx"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
)

// Mention is one reference discovered while generating a section.
type Mention struct {
	Key  string `json:"key"`
	Text string `json:"full_reference"`
}

type Resolver struct {
	repos *repos.Set
	log   *logger.Logger
}

func NewResolver(set *repos.Set, baseLog *logger.Logger) *Resolver {
	return &Resolver{repos: set, log: baseLog.With("service", "ReferenceResolver")}
}

// Resolve maps a section's mentions onto book-wide numbers and links every
// resolved reference to the section.
//
// A known key keeps its number and its original text. An unknown key gets
// max+1. Mentions with blank text or blank key are skipped. Callers must hold
// the book's lock and pass the transaction that will also store the section.
func (r *Resolver) Resolve(dbc dbctx.Context, bookID, sectionID uuid.UUID, mentions []Mention) (map[string]int, error) {
	ctx := ctxutil.Default(dbc.Ctx)
	ctx, span := tracer.Start(ctx, "bibliography.Resolve")
	defer span.End()
	dbc.Ctx = ctx
	span.SetAttributes(
		attribute.String("book.id", bookID.String()),
		attribute.String("section.id", sectionID.String()),
		attribute.Int("mentions", len(mentions)),
	)

	type pending struct {
		key  string
		text string
	}
	var wanted []pending
	seen := map[string]bool{}
	for _, m := range mentions {
		key := citation.NormalizeKey(m.Key)
		text := strings.TrimSpace(m.Text)
		if key == "" || text == "" {
			r.log.Debug("Skipping blank reference mention", "book_id", bookID, "section_id", sectionID, "key", m.Key)
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		wanted = append(wanted, pending{key: key, text: text})
	}
	out := make(map[string]int, len(wanted))
	if len(wanted) == 0 {
		return out, nil
	}

	keys := make([]string, 0, len(wanted))
	for _, w := range wanted {
		keys = append(keys, w.key)
	}
	existing, err := r.repos.Reference.GetByKeys(dbc, bookID, keys)
	if err != nil {
		return nil, fmt.Errorf("load references by key: %w", err)
	}
	byKey := make(map[string]*types.GlobalReference, len(existing))
	for _, ref := range existing {
		byKey[ref.Key] = ref
	}

	next, err := r.repos.Reference.MaxNumber(dbc, bookID)
	if err != nil {
		return nil, fmt.Errorf("load max reference number: %w", err)
	}

	var created []*types.GlobalReference
	linked := make([]uuid.UUID, 0, len(wanted))
	for _, w := range wanted {
		if ref, ok := byKey[w.key]; ok {
			out[w.key] = ref.Number
			linked = append(linked, ref.ID)
			continue
		}
		next++
		ref := &types.GlobalReference{
			ID:     uuid.New(),
			BookID: bookID,
			Key:    w.key,
			Number: next,
			Text:   w.text,
		}
		created = append(created, ref)
		out[w.key] = ref.Number
		linked = append(linked, ref.ID)
	}

	if _, err := r.repos.Reference.Create(dbc, created); err != nil {
		return nil, fmt.Errorf("create references: %w", err)
	}

	links := make([]*types.SectionReference, 0, len(linked))
	for _, id := range linked {
		links = append(links, &types.SectionReference{SectionID: sectionID, ReferenceID: id})
	}
	if _, err := r.repos.SectionReference.Associate(dbc, links); err != nil {
		return nil, fmt.Errorf("link references to section: %w", err)
	}

	span.SetAttributes(attribute.Int("references.created", len(created)))
	if len(created) > 0 {
		r.log.Info("Allocated reference numbers", "book_id", bookID, "section_id", sectionID, "created", len(created), "max_number", next)
	}
	return out, nil
}
