package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pedrohsmesquita/Lectria/internal/data/repos/testutil"
	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	apperrors "github.com/pedrohsmesquita/Lectria/internal/pkg/errors"
)

func TestManualAssetLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newBookService(t, f)
	book := testutil.SeedBook(t, ctx, f.db, types.BookStatusCompleted)
	ch := testutil.SeedChapter(t, ctx, f.db, book.ID, "Time", 1, false)
	sec := testutil.SeedSection(t, ctx, f.db, ch, "Clocks", 1, types.SectionStatusSuccess,
		"Intro.\n\n[IMAGE_1]\n\nMore [IMAGE_2].")
	_, err := f.set.SectionAsset.Create(dbcOf(ctx), &types.SectionAsset{
		SectionID:   sec.ID,
		Placeholder: "[IMAGE_2]",
		Caption:     "from slides",
	})
	require.NoError(t, err)

	first, err := svc.AddAsset(ctx, sec.ID, AssetInput{Caption: " Lamport diagram ", StoragePath: "media/b1/lamport.png"})
	require.NoError(t, err)
	require.Equal(t, "[IMAGE_3]", first.Placeholder)
	require.Equal(t, "Lamport diagram", first.Caption)
	require.Equal(t, types.AssetSourceManual, first.SourceType)

	second, err := svc.AddAsset(ctx, sec.ID, AssetInput{StoragePath: "media/b1/vector.png"})
	require.NoError(t, err)
	require.Equal(t, "[IMAGE_4]", second.Placeholder)
	require.Equal(t,
		"Intro.\n\n[IMAGE_1]\n\nMore [IMAGE_2].\n\n[IMAGE_3]\n\n[IMAGE_4]\n",
		testutil.ReloadSection(t, ctx, f.db, sec.ID).Content())

	caption := "Vector clocks"
	updated, err := svc.UpdateAsset(ctx, second.ID, AssetUpdate{Caption: &caption})
	require.NoError(t, err)
	require.Equal(t, "Vector clocks", updated.Caption)
	require.Equal(t, "media/b1/vector.png", updated.StoragePath)

	require.NoError(t, svc.DeleteAsset(ctx, first.ID))
	require.Equal(t,
		"Intro.\n\n[IMAGE_1]\n\nMore [IMAGE_2].\n\n[IMAGE_4]",
		testutil.ReloadSection(t, ctx, f.db, sec.ID).Content())

	assets, err := f.set.SectionAsset.ListBySectionIDs(dbcOf(ctx), []uuid.UUID{sec.ID})
	require.NoError(t, err)
	require.Len(t, assets, 2)

	_, err = f.set.SectionAsset.GetByID(dbcOf(ctx), first.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.ErrorIs(t, svc.DeleteAsset(ctx, first.ID), apperrors.ErrNotFound)
}

func TestManualAssetRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newBookService(t, f)
	book := testutil.SeedBook(t, ctx, f.db, types.BookStatusGenerating)
	ch := testutil.SeedChapter(t, ctx, f.db, book.ID, "Time", 1, false)
	sec := testutil.SeedSection(t, ctx, f.db, ch, "Clocks", 1, types.SectionStatusSuccess, "body")
	other := testutil.SeedSection(t, ctx, f.db, ch, "Vectors", 2, types.SectionStatusPending, "")
	bibCh := testutil.SeedChapter(t, ctx, f.db, book.ID, "References", 2, true)
	bibSec := testutil.SeedSection(t, ctx, f.db, bibCh, "Reference List", 1, types.SectionStatusSuccess, "[1] x")

	_, err := svc.AddAsset(ctx, sec.ID, AssetInput{Caption: "no file"})
	require.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = svc.AddAsset(ctx, bibSec.ID, AssetInput{StoragePath: "x.png"})
	require.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	asset, err := svc.AddAsset(ctx, sec.ID, AssetInput{StoragePath: "x.png"})
	require.NoError(t, err)

	require.NoError(t, f.set.Section.UpdateFields(dbcOf(ctx), other.ID, map[string]interface{}{"status": types.SectionStatusProcessing}))
	_, err = svc.AddAsset(ctx, sec.ID, AssetInput{StoragePath: "y.png"})
	require.ErrorIs(t, err, apperrors.ErrBookBusy)
	caption := "late"
	_, err = svc.UpdateAsset(ctx, asset.ID, AssetUpdate{Caption: &caption})
	require.ErrorIs(t, err, apperrors.ErrBookBusy)
	require.ErrorIs(t, svc.DeleteAsset(ctx, asset.ID), apperrors.ErrBookBusy)

	require.Equal(t, "body\n\n[IMAGE_1]\n", testutil.ReloadSection(t, ctx, f.db, sec.ID).Content())
}
