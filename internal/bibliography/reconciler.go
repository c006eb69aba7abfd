package bibliography

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/pedrohsmesquita/Lectria/internal/citation"
	"github.com/pedrohsmesquita/Lectria/internal/data/repos"
	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/ctxutil"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/dbctx"
	apperrors "github.com/pedrohsmesquita/Lectria/internal/pkg/errors"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
)

var tracer = otel.Tracer("github.com/pedrohsmesquita/Lectria/internal/bibliography")

// ChapterNames are the titles used when the bibliography chapter has to be created.
type ChapterNames struct {
	ChapterTitle string
	SectionTitle string
}

func (n ChapterNames) withDefaults() ChapterNames {
	if strings.TrimSpace(n.ChapterTitle) == "" {
		n.ChapterTitle = "References"
	}
	if strings.TrimSpace(n.SectionTitle) == "" {
		n.SectionTitle = "Reference List"
	}
	return n
}

type Result struct {
	Renumbered       int         `json:"references_updated"`
	Deleted          int         `json:"references_deleted"`
	Created          int         `json:"references_created"`
	Edited           int         `json:"references_edited"`
	SectionsAffected int         `json:"sections_affected"`
	Renumber         map[int]int `json:"renumber,omitempty"`
	DeletedNumbers   []int       `json:"deleted_numbers,omitempty"`
}

type Reconciler struct {
	db     *gorm.DB
	repos  *repos.Set
	locker BookLocker
	names  ChapterNames
	log    *logger.Logger
}

func NewReconciler(db *gorm.DB, set *repos.Set, locker BookLocker, names ChapterNames, baseLog *logger.Logger) *Reconciler {
	return &Reconciler{
		db:     db,
		repos:  set,
		locker: locker,
		names:  names.withDefaults(),
		log:    baseLog.With("service", "BibliographyReconciler"),
	}
}

// Reconcile makes document the source of truth for the book's reference list.
// The document is validated before anything is touched; the store mutation,
// the citation rewrite of every content section and the bibliography chapter
// write then commit together or not at all.
func (r *Reconciler) Reconcile(dbc dbctx.Context, bookID uuid.UUID, document string) (*Result, error) {
	ctx := ctxutil.Default(dbc.Ctx)
	ctx, span := tracer.Start(ctx, "bibliography.Reconcile")
	defer span.End()
	span.SetAttributes(attribute.String("book.id", bookID.String()))

	entries, err := citation.ParseDocument(document)
	if err != nil {
		span.SetStatus(codes.Error, "invalid document")
		return nil, err
	}

	unlock, err := r.locker.Lock(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("lock book %s: %w", bookID, err)
	}
	defer unlock()

	base := dbc.Tx
	if base == nil {
		base = r.db
	}

	var res *Result
	err = base.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		out, err := r.apply(inner, bookID, entries, document)
		if err != nil {
			return err
		}
		res = out
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.log.Warn("Bibliography reconciliation rolled back", "book_id", bookID, "error", err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("references.renumbered", res.Renumbered),
		attribute.Int("references.deleted", res.Deleted),
		attribute.Int("references.created", res.Created),
		attribute.Int("sections.affected", res.SectionsAffected),
	)
	r.log.Info("Bibliography reconciled",
		"book_id", bookID,
		"renumbered", res.Renumbered,
		"deleted", res.Deleted,
		"created", res.Created,
		"edited", res.Edited,
		"sections_affected", res.SectionsAffected,
	)
	return res, nil
}

func (r *Reconciler) apply(dbc dbctx.Context, bookID uuid.UUID, entries []citation.Entry, document string) (*Result, error) {
	if _, err := r.repos.Book.GetByID(dbc, bookID); err != nil {
		return nil, err
	}
	busy, err := r.repos.Section.AnyProcessing(dbc, bookID)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, apperrors.ErrBookBusy
	}

	current, err := r.repos.Reference.ListByBook(dbc, bookID)
	if err != nil {
		return nil, fmt.Errorf("load references: %w", err)
	}
	plan := BuildPlan(current, entries)

	// Deletions and text edits cannot collide with anything.
	if len(plan.Deletes) > 0 {
		ids := make([]uuid.UUID, 0, len(plan.Deletes))
		for _, d := range plan.Deletes {
			ids = append(ids, d.ID)
		}
		if err := r.repos.SectionReference.DeleteByReferenceIDs(dbc, ids); err != nil {
			return nil, fmt.Errorf("unlink deleted references: %w", err)
		}
		if err := r.repos.Reference.DeleteByIDs(dbc, ids); err != nil {
			return nil, fmt.Errorf("delete references: %w", err)
		}
	}
	for _, e := range plan.Edits {
		if err := r.repos.Reference.UpdateText(dbc, e.ReferenceID, e.Text); err != nil {
			return nil, fmt.Errorf("edit reference %d: %w", e.Number, err)
		}
	}

	// Two passes keep (book_id, number) unique throughout: every mover first
	// parks on its negated target, then lands on the real one.
	for _, m := range plan.Moves {
		if err := r.repos.Reference.UpdateNumber(dbc, m.ReferenceID, -m.To); err != nil {
			return nil, fmt.Errorf("stage reference %d -> %d: %w", m.From, m.To, err)
		}
	}
	for _, m := range plan.Moves {
		if err := r.repos.Reference.UpdateNumber(dbc, m.ReferenceID, m.To); err != nil {
			return nil, fmt.Errorf("renumber reference %d -> %d: %w", m.From, m.To, err)
		}
	}

	if len(plan.Creates) > 0 {
		rows := make([]*types.GlobalReference, 0, len(plan.Creates))
		for _, c := range plan.Creates {
			rows = append(rows, &types.GlobalReference{
				BookID: bookID,
				Key:    manualKey(),
				Number: c.Position,
				Text:   strings.TrimSpace(c.Text),
			})
		}
		if _, err := r.repos.Reference.Create(dbc, rows); err != nil {
			return nil, fmt.Errorf("create references: %w", err)
		}
	}

	renumber := plan.Renumber()
	deleted := plan.DeletedNumbers()
	affected := 0
	if len(renumber) > 0 || len(deleted) > 0 {
		sections, err := r.repos.Section.ListContentByBook(dbc, bookID)
		if err != nil {
			return nil, fmt.Errorf("load sections: %w", err)
		}
		for _, s := range sections {
			if s.ContentMarkdown == nil {
				continue
			}
			before := *s.ContentMarkdown
			after := citation.Permute(before, renumber, deleted)
			if after == before {
				continue
			}
			if err := r.repos.Section.UpdateFields(dbc, s.ID, map[string]interface{}{"content_markdown": after}); err != nil {
				return nil, fmt.Errorf("rewrite section %s: %w", s.ID, err)
			}
			affected++
		}
	}

	if _, err := writeBibliographyChapter(dbc, r.repos, r.names, bookID, document); err != nil {
		return nil, err
	}

	res := &Result{
		Renumbered:       len(plan.Moves),
		Deleted:          len(plan.Deletes),
		Created:          len(plan.Creates),
		Edited:           len(plan.Edits),
		SectionsAffected: affected,
	}
	if len(renumber) > 0 {
		res.Renumber = renumber
	}
	for n := range deleted {
		res.DeletedNumbers = append(res.DeletedNumbers, n)
	}
	sort.Ints(res.DeletedNumbers)
	return res, nil
}

func manualKey() string {
	return "MANUAL_" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

// writeBibliographyChapter stores document as the bibliography section,
// creating the chapter last in order when the book has none. It only writes
// when the stored content differs.
func writeBibliographyChapter(dbc dbctx.Context, set *repos.Set, names ChapterNames, bookID uuid.UUID, document string) (bool, error) {
	ch, err := set.Chapter.GetBibliography(dbc, bookID)
	if err != nil {
		return false, fmt.Errorf("load bibliography chapter: %w", err)
	}
	if ch == nil {
		max, err := set.Chapter.MaxOrder(dbc, bookID)
		if err != nil {
			return false, err
		}
		created, err := set.Chapter.Create(dbc, []*types.Chapter{{
			BookID:         bookID,
			Title:          names.ChapterTitle,
			Order:          max + 1,
			IsBibliography: true,
		}})
		if err != nil {
			return false, fmt.Errorf("create bibliography chapter: %w", err)
		}
		ch = created[0]
	}

	sections, err := set.Section.ListByChapter(dbc, ch.ID)
	if err != nil {
		return false, err
	}
	if len(sections) == 0 {
		content := document
		if _, err := set.Section.Create(dbc, []*types.Section{{
			ChapterID:       ch.ID,
			BookID:          bookID,
			Title:           names.SectionTitle,
			Order:           1,
			Status:          types.SectionStatusSuccess,
			ContentMarkdown: &content,
		}}); err != nil {
			return false, fmt.Errorf("create bibliography section: %w", err)
		}
		return true, nil
	}

	target := sections[0]
	if target.ContentMarkdown != nil && *target.ContentMarkdown == document && target.Status == types.SectionStatusSuccess {
		return false, nil
	}
	if err := set.Section.UpdateFields(dbc, target.ID, map[string]interface{}{
		"content_markdown": document,
		"status":           types.SectionStatusSuccess,
	}); err != nil {
		return false, fmt.Errorf("write bibliography section: %w", err)
	}
	return true, nil
}
