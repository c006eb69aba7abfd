package bibliography

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/pedrohsmesquita/Lectria/internal/data/repos/testutil"
	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/dbctx"
	apperrors "github.com/pedrohsmesquita/Lectria/internal/pkg/errors"
)

func TestReferenceRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewReferenceRepo(db, testutil.Logger(t))

	book := testutil.SeedBook(t, ctx, tx, types.BookStatusGenerating)
	if max, err := repo.MaxNumber(dbc, book.ID); err != nil || max != 0 {
		t.Fatalf("MaxNumber empty: %d %v", max, err)
	}

	testutil.SeedReference(t, ctx, tx, book.ID, "SILVA_2022", 1, "Silva, 2022.")
	testutil.SeedReference(t, ctx, tx, book.ID, "COSTA_2019", 2, "Costa, 2019.")

	if max, err := repo.MaxNumber(dbc, book.ID); err != nil || max != 2 {
		t.Fatalf("MaxNumber: %d %v", max, err)
	}

	dup := &types.GlobalReference{BookID: book.ID, Key: "OTHER", Number: 2, Text: "x"}
	if _, err := repo.Create(dbc, []*types.GlobalReference{dup}); !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected conflict on duplicate (book_id, number), got %v", err)
	}
}

func TestReferenceRepoSwapThroughNegatives(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewReferenceRepo(db, testutil.Logger(t))

	book := testutil.SeedBook(t, ctx, tx, types.BookStatusCompleted)
	a := testutil.SeedReference(t, ctx, tx, book.ID, "A", 1, "a")
	b := testutil.SeedReference(t, ctx, tx, book.ID, "B", 2, "b")

	for _, step := range []struct {
		ref    *types.GlobalReference
		number int
	}{{a, -2}, {b, -1}, {a, 2}, {b, 1}} {
		if err := repo.UpdateNumber(dbc, step.ref.ID, step.number); err != nil {
			t.Fatalf("UpdateNumber(%s, %d): %v", step.ref.Key, step.number, err)
		}
	}
	rows, err := repo.ListByBook(dbc, book.ID)
	if err != nil {
		t.Fatalf("ListByBook: %v", err)
	}
	if rows[0].Key != "B" || rows[1].Key != "A" {
		t.Fatalf("swap failed: %s=%d %s=%d", rows[0].Key, rows[0].Number, rows[1].Key, rows[1].Number)
	}
}

func TestSectionReferenceAssociateIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewSectionReferenceRepo(db, testutil.Logger(t))

	book := testutil.SeedBook(t, ctx, tx, types.BookStatusGenerating)
	ch := testutil.SeedChapter(t, ctx, tx, book.ID, "One", 1, false)
	sec := testutil.SeedSection(t, ctx, tx, ch, "1.1", 1, types.SectionStatusProcessing, "")
	ref := testutil.SeedReference(t, ctx, tx, book.ID, "AUTHOR_2020", 1, "Author, 2020.")

	row := func() []*types.SectionReference {
		return []*types.SectionReference{{SectionID: sec.ID, ReferenceID: ref.ID}}
	}
	if n, err := repo.Associate(dbc, row()); err != nil || n != 1 {
		t.Fatalf("first Associate: n=%d err=%v", n, err)
	}
	if n, err := repo.Associate(dbc, row()); err != nil || n != 0 {
		t.Fatalf("second Associate: n=%d err=%v", n, err)
	}
	links, err := repo.ListBySectionIDs(dbc, []uuid.UUID{sec.ID})
	if err != nil || len(links) != 1 {
		t.Fatalf("ListBySectionIDs: %v %v", links, err)
	}
}
