package bibliography

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pedrohsmesquita/Lectria/internal/data/repos"
	"github.com/pedrohsmesquita/Lectria/internal/data/repos/testutil"
	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/dbctx"
)

func TestResolveSharesKeyAcrossSections(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)
	resolver := NewResolver(set, log)
	dbc := dbctx.Context{Ctx: ctx}

	book := testutil.SeedBook(t, ctx, db, types.BookStatusGenerating)
	ch := testutil.SeedChapter(t, ctx, db, book.ID, "One", 1, false)
	a := testutil.SeedSection(t, ctx, db, ch, "1.1", 1, types.SectionStatusProcessing, "")
	b := testutil.SeedSection(t, ctx, db, ch, "1.2", 2, types.SectionStatusProcessing, "")

	first, err := resolver.Resolve(dbc, book.ID, a.ID, []Mention{
		{Key: "LAMPORT_1978", Text: "Lamport, L. Time, Clocks. 1978."},
		{Key: "AUTHOR_2020", Text: "Author, A. Title. 2020."},
	})
	require.NoError(t, err)
	require.Equal(t, map[string]int{"LAMPORT_1978": 1, "AUTHOR_2020": 2}, first)

	second, err := resolver.Resolve(dbc, book.ID, b.ID, []Mention{
		{Key: "AUTHOR_2020", Text: "Author, A. Title, revised wording. 2020."},
		{Key: "REF:NEW_2023", Text: "New, N. Later. 2023."},
	})
	require.NoError(t, err)
	require.Equal(t, map[string]int{"AUTHOR_2020": 2, "NEW_2023": 3}, second)

	refs := testutil.References(t, ctx, db, book.ID)
	require.Len(t, refs, 3)
	require.Equal(t, "Author, A. Title. 2020.", refs[1].Text, "first writer keeps the wording")

	links, err := set.SectionReference.ListByReferenceIDs(dbc, []uuid.UUID{refs[1].ID})
	require.NoError(t, err)
	require.Len(t, links, 2)

	// Resolving the same section again links nothing new and allocates nothing.
	again, err := resolver.Resolve(dbc, book.ID, a.ID, []Mention{{Key: "AUTHOR_2020", Text: "Author, A. Title. 2020."}})
	require.NoError(t, err)
	require.Equal(t, map[string]int{"AUTHOR_2020": 2}, again)
	require.Len(t, testutil.References(t, ctx, db, book.ID), 3)
}

func TestResolveSkipsBlankMentions(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)
	resolver := NewResolver(set, log)

	book := testutil.SeedBook(t, ctx, db, types.BookStatusGenerating)
	ch := testutil.SeedChapter(t, ctx, db, book.ID, "One", 1, false)
	sec := testutil.SeedSection(t, ctx, db, ch, "1.1", 1, types.SectionStatusProcessing, "")

	out, err := resolver.Resolve(dbctx.Context{Ctx: ctx}, book.ID, sec.ID, []Mention{
		{Key: "EMPTY", Text: "   "},
		{Key: "  ", Text: "No key at all"},
		{Key: "OK_2001", Text: "Ok, 2001."},
		{Key: "OK_2001", Text: "Duplicate in the same section."},
	})
	require.NoError(t, err)
	require.Equal(t, map[string]int{"OK_2001": 1}, out)
	require.Len(t, testutil.References(t, ctx, db, book.ID), 1)
}

func TestAuditFindsDanglingAndUnresolved(t *testing.T) {
	bookID := uuid.New()
	c1 := "ok [1], dangling [9], pending [REF:LOST_1999]"
	c2 := "nothing to see"
	report := Audit(bookID,
		[]*types.GlobalReference{{Number: 1}, {Number: 2}},
		[]*types.Section{
			{ID: uuid.New(), Title: "a", ContentMarkdown: &c1},
			{ID: uuid.New(), Title: "b", ContentMarkdown: &c2},
			{ID: uuid.New(), Title: "empty"},
		},
	)
	require.False(t, report.Consistent)
	require.Len(t, report.Dangling, 1)
	require.Equal(t, []int{9}, report.Dangling[0].Numbers)
	require.Len(t, report.Unresolved, 1)
	require.Equal(t, []string{"LOST_1999"}, report.Unresolved[0].Keys)
	require.Equal(t, []int{2}, report.OrphanNumbers)
}
