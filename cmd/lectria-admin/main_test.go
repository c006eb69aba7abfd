package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/pedrohsmesquita/Lectria/internal/data/db"
	"github.com/pedrohsmesquita/Lectria/internal/data/repos/testutil"
	types "github.com/pedrohsmesquita/Lectria/internal/domain"
)

const (
	alphaText = "Alpha, A. Logical Clocks. 1978."
	betaText  = "Beta, B. Paxos Made Simple. 2001."
)

func setupCLIEnv(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "admin.db")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", path)
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("SOURCE_STORAGE", "local")
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q in output:\n%s", needle, haystack)
	}
}

func seedBook(t *testing.T, path string) *types.Book {
	t.Helper()
	ctx := context.Background()
	conn, err := db.OpenSQLite(path, &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	book := testutil.SeedBook(t, ctx, conn, types.BookStatusCompleted)
	ch := testutil.SeedChapter(t, ctx, conn, book.ID, "Time", 1, false)
	testutil.SeedSection(t, ctx, conn, ch, "1.1", 1, types.SectionStatusSuccess, "Clocks [1]. Consensus [2].")
	testutil.SeedReference(t, ctx, conn, book.ID, "ALPHA_1978", 1, alphaText)
	testutil.SeedReference(t, ctx, conn, book.ID, "BETA_2001", 2, betaText)
	return book
}

func TestMigrateListReconcileAudit(t *testing.T) {
	path := setupCLIEnv(t)

	out, err := runCLI(t, "migrate")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	requireContains(t, out, "Schema up to date (sqlite)")

	book := seedBook(t, path)

	out, err = runCLI(t, "references", "list", "--book", book.ID.String())
	if err != nil {
		t.Fatalf("references list: %v", err)
	}
	requireContains(t, out, "ALPHA_1978")
	requireContains(t, out, "BETA_2001")

	docPath := filepath.Join(t.TempDir(), "bibliography.md")
	doc := "[1] " + betaText + "\n[2] " + alphaText + "\n"
	if err := os.WriteFile(docPath, []byte(doc), 0o600); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	out, err = runCLI(t, "reconcile", "--book", book.ID.String(), "--file", docPath)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	requireContains(t, out, "Sections affected")
	requireContains(t, out, "Old")

	out, err = runCLI(t, "references", "list", "--book", book.ID.String(), "--document")
	if err != nil {
		t.Fatalf("references list --document: %v", err)
	}
	requireContains(t, out, "[1] "+betaText)
	requireContains(t, out, "[2] "+alphaText)

	out, err = runCLI(t, "audit", "--book", book.ID.String(), "--strict")
	if err != nil {
		t.Fatalf("audit: %v\n%s", err, out)
	}
	requireContains(t, out, "Consistent: true")
}

func TestCommandsRequireBook(t *testing.T) {
	setupCLIEnv(t)
	for _, args := range [][]string{
		{"references", "list"},
		{"reconcile", "--file", "-"},
		{"audit", "--book", "not-a-uuid"},
	} {
		if _, err := runCLI(t, args...); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}
