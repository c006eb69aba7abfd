package sources

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	apperrors "github.com/pedrohsmesquita/Lectria/internal/pkg/errors"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLocalReaderReadsInsideRoot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lectures/01.txt", "Clock skew basics.")

	r, err := NewLocalReader(dir)
	if err != nil {
		t.Fatalf("NewLocalReader: %v", err)
	}
	got, err := ReadText(context.Background(), r, "lectures/01.txt", 0)
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if got != "Clock skew basics." {
		t.Fatalf("got %q", got)
	}

	// leading slash and dot segments stay rooted
	got, err = ReadText(context.Background(), r, "/lectures/../lectures/01.txt", 0)
	if err != nil || got != "Clock skew basics." {
		t.Fatalf("rooted read: %q %v", got, err)
	}
}

func TestLocalReaderMissing(t *testing.T) {
	r, _ := NewLocalReader(t.TempDir())
	_, err := ReadText(context.Background(), r, "nope.txt", 0)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, err = ReadText(context.Background(), r, "  ", 0)
	if !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestReadTextTruncatesOnRuneBoundary(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "aé")
	r, _ := NewLocalReader(dir)
	// "é" is two bytes; a 2-byte cap splits it
	got, err := ReadText(context.Background(), r, "a.txt", 2)
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if got != "a" {
		t.Fatalf("got %q", got)
	}
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	docs := make([]*types.SourceDocument, 0, 5)
	for i := 0; i < 5; i++ {
		name := filepath.Join("t", strings.Repeat("x", i+1)+".txt")
		writeFile(t, dir, name, "doc "+name)
		docs = append(docs, &types.SourceDocument{ID: uuid.New(), StoragePath: name})
	}
	r, _ := NewLocalReader(dir)
	got, err := LoadAll(context.Background(), r, docs, 0, 2)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(got) != len(docs) {
		t.Fatalf("expected %d texts, got %d", len(docs), len(got))
	}
	for _, d := range docs {
		if got[d.ID] != "doc "+d.StoragePath {
			t.Fatalf("doc %s: %q", d.StoragePath, got[d.ID])
		}
	}

	docs = append(docs, &types.SourceDocument{ID: uuid.New(), StoragePath: "missing.txt"})
	if _, err := LoadAll(context.Background(), r, docs, 0, 2); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
